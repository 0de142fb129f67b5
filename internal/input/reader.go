// Package input reads normalized genotype tables into observed genotypes.
//
// Rows are "rsid chromosome position allele1 allele2", separated by tabs,
// commas or runs of spaces. The four-column form "rsid chromosome position
// genotype" (e.g. "AG") is also accepted. Lines starting with # are comments
// and a leading header row is skipped.
package input

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ppiankov/strandline/internal/model"
)

// ErrMalformedRow is returned for rows that cannot be split into the expected columns
var ErrMalformedRow = errors.New("malformed genotype row")

// Stats counts what the reader kept and dropped
type Stats struct {
	Rows       int `json:"rows"`
	Kept       int `json:"kept"`
	NoCalls    int `json:"no_calls"`
	Duplicates int `json:"duplicates"`
	NonSNP     int `json:"non_snp"` // kept, reported later as malformed
}

// Sample is the parsed content of one genotype file
type Sample struct {
	Name      string
	Genotypes map[string]model.ObservedGenotype
	Stats     Stats
}

// ReadFile parses the file at path. The sample is named after the file.
func ReadFile(path string) (*Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open genotypes: %w", err)
	}
	defer func() { _ = f.Close() }()

	sample, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	sample.Name = sampleName(path)
	return sample, nil
}

// Read parses genotype rows from r
func Read(r io.Reader) (*Sample, error) {
	sample := &Sample{Genotypes: make(map[string]model.ObservedGenotype)}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	sawData := false
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := splitRow(line)
		if !sawData {
			sawData = true
			if isHeader(fields) {
				continue
			}
		}

		obs, noCall, err := parseRow(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		sample.Stats.Rows++

		if noCall {
			sample.Stats.NoCalls++
			continue
		}
		if _, dup := sample.Genotypes[obs.RSID]; dup {
			sample.Stats.Duplicates++
			continue
		}
		if !obs.Alleles.Valid() {
			sample.Stats.NonSNP++
		}
		sample.Genotypes[obs.RSID] = obs
		sample.Stats.Kept++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan genotypes: %w", err)
	}

	return sample, nil
}

func splitRow(line string) []string {
	var fields []string
	switch {
	case strings.Contains(line, "\t"):
		fields = strings.Split(line, "\t")
	case strings.Contains(line, ","):
		fields = strings.Split(line, ",")
	default:
		return strings.Fields(line)
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

func isHeader(fields []string) bool {
	if len(fields) == 0 {
		return false
	}
	first := strings.ToLower(fields[0])
	return first == "rsid" || first == "snp" || first == "id"
}

func parseRow(fields []string) (model.ObservedGenotype, bool, error) {
	var a1, a2 string
	switch len(fields) {
	case 5:
		a1, a2 = fields[3], fields[4]
	case 4:
		gt := fields[3]
		if isNoCall(gt) {
			return model.ObservedGenotype{}, true, nil
		}
		if len(gt) != 2 {
			// haploid calls (X, Y, MT in male samples) carry one base
			if len(gt) == 1 {
				a1, a2 = gt, gt
				break
			}
			return model.ObservedGenotype{}, false, fmt.Errorf("%w: genotype %q", ErrMalformedRow, gt)
		}
		a1, a2 = gt[:1], gt[1:]
	default:
		return model.ObservedGenotype{}, false, fmt.Errorf("%w: want 4 or 5 columns, got %d", ErrMalformedRow, len(fields))
	}

	rsid := strings.ToLower(fields[0])
	if rsid == "" {
		return model.ObservedGenotype{}, false, fmt.Errorf("%w: empty rsid", ErrMalformedRow)
	}
	if isNoCall(a1) || isNoCall(a2) {
		return model.ObservedGenotype{}, true, nil
	}

	var pos int64
	if p := fields[2]; p != "" {
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return model.ObservedGenotype{}, false, fmt.Errorf("%w: position %q", ErrMalformedRow, p)
		}
		pos = v
	}

	return model.ObservedGenotype{
		RSID:       rsid,
		Chromosome: strings.TrimPrefix(strings.ToUpper(fields[1]), "CHR"),
		Position:   pos,
		Alleles:    model.NewAllelePair(alleleBase(a1), alleleBase(a2)),
	}, false, nil
}

func isNoCall(s string) bool {
	return s == "" || s == "0" || s == "-" || s == "--"
}

// alleleBase maps an allele token to one byte. Multi-base tokens (indel
// sequences) become 'N' so they are kept and flagged downstream.
func alleleBase(s string) byte {
	if len(s) != 1 {
		return 'N'
	}
	return s[0]
}

func sampleName(path string) string {
	base := filepath.Base(path)
	for _, ext := range []string{".txt", ".tsv", ".csv"} {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}
