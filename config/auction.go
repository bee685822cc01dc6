package config

import (
	"fmt"

	"github.com/kilianp07/lineauction/core/auction/journal"
	"github.com/kilianp07/lineauction/core/bidcap"
	"github.com/kilianp07/lineauction/core/model"
)

// AuctionConfig holds the cap formula, the frame table and the journal.
type AuctionConfig struct {
	Cap     bidcap.Params     `json:"cap"`
	Frames  []model.FrameSpec `json:"frames"`
	Journal journal.Config    `json:"journal"`
}

// SetDefaults applies the standard cap constants and frames.
func (c *AuctionConfig) SetDefaults() {
	d := bidcap.DefaultParams()
	if c.Cap.Base == 0 {
		c.Cap.Base = d.Base
	}
	if c.Cap.K == 0 {
		c.Cap.K = d.K
	}
	if c.Cap.IntensityRef == 0 {
		c.Cap.IntensityRef = d.IntensityRef
	}
	if len(c.Frames) == 0 {
		c.Frames = model.DefaultFrames().Specs()
	}
	c.Journal.SetDefaults()
}

// Validate checks the frame table and cap constants.
func (c AuctionConfig) Validate() error {
	if c.Cap.IntensityRef <= 0 {
		return fmt.Errorf("auction.cap.intensity_ref must be positive")
	}
	if c.Cap.Base < 0 || c.Cap.K < 0 {
		return fmt.Errorf("auction.cap: base and k must not be negative")
	}
	if _, err := model.NewFrameTable(c.Frames); err != nil {
		return fmt.Errorf("auction.frames: %w", err)
	}
	return c.Journal.Validate()
}

// FrameTable builds the validated frame table.
func (c AuctionConfig) FrameTable() (model.FrameTable, error) {
	return model.NewFrameTable(c.Frames)
}

// Caps builds the bid cap calculator over the configured frames.
func (c AuctionConfig) Caps() (bidcap.Calculator, error) {
	t, err := c.FrameTable()
	if err != nil {
		return bidcap.Calculator{}, err
	}
	return bidcap.New(c.Cap, t), nil
}
