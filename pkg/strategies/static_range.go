package strategies

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gokaycavdar/go-geogate/pkg/cidr"
	"github.com/gokaycavdar/go-geogate/pkg/models"
)

// DefaultThailandRanges are well-known Thai allocations. The table is not
// exhaustive; it is the last line of defence when every other source is
// unavailable.
var DefaultThailandRanges = []string{
	"1.0.128.0/17",
	"1.46.0.0/15",
	"1.179.128.0/17",
	"14.128.8.0/22",
	"14.207.0.0/16",
	"27.130.0.0/16",
	"49.48.0.0/13",
	"49.228.0.0/14",
	"58.8.0.0/14",
	"58.136.0.0/15",
	"61.19.0.0/16",
	"61.90.0.0/15",
	"96.30.0.0/16",
	"101.51.0.0/16",
	"101.108.0.0/15",
	"103.7.56.0/22",
	"110.164.0.0/15",
	"111.84.0.0/16",
	"113.53.0.0/16",
	"115.87.0.0/16",
	"122.154.0.0/16",
	"124.109.0.0/17",
	"124.122.0.0/16",
	"125.24.0.0/14",
	"125.213.0.0/17",
	"159.192.0.0/14",
	"171.4.0.0/14",
	"171.96.0.0/13",
	"180.180.0.0/14",
	"182.52.0.0/14",
	"182.232.0.0/16",
	"183.88.0.0/14",
	"184.82.0.0/16",
	"202.28.0.0/15",
	"202.44.0.0/16",
	"202.60.192.0/19",
	"203.107.128.0/19",
	"203.113.0.0/17",
	"203.144.128.0/17",
	"203.146.0.0/16",
	"203.150.0.0/15",
	"203.170.48.0/20",
}

// StaticRangeTable answers from a fixed, ordered list of country blocks.
//
// For any syntactically valid address it always returns a definitive
// answer, which is what makes it safe to put last in the chain.
type StaticRangeTable struct {
	Blocks []cidr.Block
}

// NewStaticRangeTable creates a table over the given blocks, kept in order.
func NewStaticRangeTable(blocks []cidr.Block) *StaticRangeTable {
	return &StaticRangeTable{Blocks: blocks}
}

// DefaultStaticRangeTable creates a table over DefaultThailandRanges.
func DefaultStaticRangeTable() *StaticRangeTable {
	blocks := make([]cidr.Block, 0, len(DefaultThailandRanges))
	for _, s := range DefaultThailandRanges {
		blocks = append(blocks, cidr.MustParseBlock(s))
	}
	return NewStaticRangeTable(blocks)
}

// LoadStaticRangeTable reads extra blocks from a file and appends them after
// base.
//
// Supported format:
//   - One CIDR block or bare address per line
//   - Lines starting with # are comments
//   - Anything after the first whitespace on a line is ignored
//
// Example:
//
//	table, err := strategies.LoadStaticRangeTable("data/th_ranges.txt", strategies.DefaultStaticRangeTable().Blocks)
func LoadStaticRangeTable(filePath string, base []cidr.Block) (*StaticRangeTable, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open range file: %w", err)
	}
	defer file.Close()

	blocks := make([]cidr.Block, 0, len(base))
	blocks = append(blocks, base...)

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		block, err := cidr.ParseBlock(fields[0])
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", filePath, lineNo, err)
		}
		blocks = append(blocks, block)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read range file: %w", err)
	}

	return NewStaticRangeTable(blocks), nil
}

func (s *StaticRangeTable) Name() string {
	return NameStaticRange
}

// Resolve returns Match on the first block containing the address, NoMatch
// when none does, and Unknown only for an unparseable address.
func (s *StaticRangeTable) Resolve(_ context.Context, visitor models.Visitor) (models.Verdict, error) {
	addr, err := cidr.ParseAddr(visitor.IPAddress)
	if err != nil {
		return models.Unknown, nil
	}

	for _, block := range s.Blocks {
		if block.Contains(addr) {
			return models.Match, nil
		}
	}

	return models.NoMatch, nil
}

// Count returns the number of blocks in the table.
func (s *StaticRangeTable) Count() int {
	return len(s.Blocks)
}
