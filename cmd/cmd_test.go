package cmd

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestBidcapCommand(t *testing.T) {
	out, err := execute(t, "bidcap", "--frequency", "60")
	require.NoError(t, err)
	assert.Contains(t, out, "FRAME")
	assert.Regexp(t, `midday\s+14375\.00`, out)
}

func TestPlanCommandCSV(t *testing.T) {
	out, err := execute(t, "plan", "--start", "08:00", "--end", "10:00", "--frequency", "60",
		"--garage-travel", "10", "--line-travel", "30", "--format", "csv")
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewBufferString(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"0", "07:50", "11:10", "08:00 09:00 10:00", "", ""}, rows[1])
}

func TestPlanCommandBadClock(t *testing.T) {
	_, err := execute(t, "plan", "--start", "8h", "--end", "10:00", "--frequency", "60", "--format", "json")
	assert.ErrorContains(t, err, "--start")
}

func TestSeedThenResolve(t *testing.T) {
	dir := t.TempDir()
	fixtures := filepath.Join(dir, "fixtures.yaml")
	require.NoError(t, os.WriteFile(fixtures, []byte(`
lines:
  - name: L1
    provider_garage_id: 1
    travel_time_garage: 10
    travel_time_line: 30
vehicles:
  - plate: AB-123-CD
    owner: alice
    garage_id: 1
accounts:
  - username: alice
    balance: 100
`), 0o644))
	t.Setenv("LA_STORE__TYPE", "sqlite")
	t.Setenv("LA_STORE__CONF__DSN", filepath.Join(dir, "la.db"))
	t.Setenv("LA_AUCTION__JOURNAL__PATH", filepath.Join(dir, "auction.jsonl"))

	out, err := execute(t, "seed", "--file", fixtures)
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 1 lines, 1 vehicles, 1 accounts")

	out, err = execute(t, "resolve", "--line", "L1", "--frame", "midday")
	require.NoError(t, err)
	assert.Contains(t, out, "L1/midday: no winner")
}

func TestParseBlocks(t *testing.T) {
	got, err := parseBlocks([]string{"0=AB-123-CD", "2=EF-456-GH"})
	require.NoError(t, err)
	assert.Equal(t, map[int]string{0: "AB-123-CD", 2: "EF-456-GH"}, got)

	_, err = parseBlocks([]string{"AB-123-CD"})
	assert.Error(t, err)
	_, err = parseBlocks([]string{"x=AB"})
	assert.Error(t, err)
}
