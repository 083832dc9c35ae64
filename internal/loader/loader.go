// Package loader reads raw reagent pools from candidate files.
//
// Supported formats, chosen by extension:
//
//	.smi         one "STRUCTURE [ID [NAME...]]" per line, '#' comments
//	.yaml .yml   a list of {id, structure, props}
//	.json        an array of {id, structure, props}
//	.jsonl       one {id, structure, props} object per line
//
// Structures and IDs are NFC normalized. A candidate without an ID gets
// "<file stem>-<index>". Props follow the canonical value rules: no floats,
// no nulls.
package loader

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/roach88/rxnenum/internal/ir"
)

// Format identifies a candidate file format.
type Format string

const (
	FormatSMILES Format = "smi"
	FormatYAML   Format = "yaml"
	FormatJSON   Format = "json"
	FormatJSONL  Format = "jsonl"
)

// ErrUnknownFormat is returned for files whose extension is not supported.
var ErrUnknownFormat = errors.New("unknown candidate file format")

// FormatOf maps a file name to its format.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".smi", ".smiles":
		return FormatSMILES, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// Load reads the candidate file at path.
func Load(path string) ([]ir.Candidate, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	defer f.Close()

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	cands, err := Parse(f, format, stem)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cands, nil
}

// Parse reads candidates in the given format. stem prefixes generated IDs.
func Parse(r io.Reader, format Format, stem string) ([]ir.Candidate, error) {
	var (
		raw []rawCandidate
		err error
	)
	switch format {
	case FormatSMILES:
		raw, err = parseSMILES(r)
	case FormatYAML:
		raw, err = parseYAML(r)
	case FormatJSON:
		raw, err = parseJSON(r)
	case FormatJSONL:
		raw, err = parseJSONL(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, err
	}
	return finish(raw, stem)
}

type rawCandidate struct {
	ID        string         `yaml:"id" json:"id"`
	Structure string         `yaml:"structure" json:"structure"`
	Props     map[string]any `yaml:"props" json:"props"`

	line int
}

func parseSMILES(r io.Reader) ([]rawCandidate, error) {
	var out []rawCandidate
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		c := rawCandidate{Structure: fields[0], line: line}
		if len(fields) > 1 {
			c.ID = fields[1]
		}
		if len(fields) > 2 {
			c.Props = map[string]any{"name": strings.Join(fields[2:], " ")}
		}
		out = append(out, c)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read smiles: %w", err)
	}
	return out, nil
}

func parseYAML(r io.Reader) ([]rawCandidate, error) {
	var out []rawCandidate
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return out, nil
}

func parseJSON(r io.Reader) ([]rawCandidate, error) {
	var out []rawCandidate
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return out, nil
}

func parseJSONL(r io.Reader) ([]rawCandidate, error) {
	var out []rawCandidate
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(text))
		dec.UseNumber()
		var c rawCandidate
		if err := dec.Decode(&c); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		c.line = line
		out = append(out, c)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read jsonl: %w", err)
	}
	return out, nil
}

func finish(raw []rawCandidate, stem string) ([]ir.Candidate, error) {
	out := make([]ir.Candidate, 0, len(raw))
	for i, rc := range raw {
		where := fmt.Sprintf("candidate %d", i)
		if rc.line > 0 {
			where = fmt.Sprintf("line %d", rc.line)
		}

		structure := norm.NFC.String(strings.TrimSpace(rc.Structure))
		if structure == "" {
			return nil, fmt.Errorf("%s: empty structure", where)
		}
		id := norm.NFC.String(strings.TrimSpace(rc.ID))
		if id == "" {
			id = fmt.Sprintf("%s-%d", stem, i)
		}

		c := ir.Candidate{ID: id, Structure: structure}
		if len(rc.Props) > 0 {
			v, err := ir.FromAny(rc.Props)
			if err != nil {
				return nil, fmt.Errorf("%s (%s) props: %w", where, id, err)
			}
			c.Props = v.(ir.IRObject)
		}
		out = append(out, c)
	}

	dups := lo.FindDuplicatesBy(out, func(c ir.Candidate) string { return c.ID })
	if len(dups) > 0 {
		ids := lo.Map(dups, func(c ir.Candidate, _ int) string { return c.ID })
		return nil, fmt.Errorf("duplicate candidate ids: %s", strings.Join(ids, ", "))
	}
	return out, nil
}
