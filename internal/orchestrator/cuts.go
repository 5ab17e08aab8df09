package orchestrator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/local/pdfsplitter/internal/split"
)

const defaultPDFName = "section"

// CutRequest is the body of /cut_pdf. Exactly one of Groups or FinalPaths
// is set. OldFilePaths belongs to the FinalPaths form.
type CutRequest struct {
	Groups       []CutGroup  `json:"groups,omitempty" yaml:"groups,omitempty"`
	FinalPaths   []FinalPath `json:"final_paths,omitempty" yaml:"final_paths,omitempty"`
	OldFilePaths []string    `json:"old_file_paths,omitempty" yaml:"old_file_paths,omitempty"`
}

// CutGroup is one source with its cuts and the outputs they replace.
type CutGroup struct {
	OriginalFilePath string    `json:"original_file_path" yaml:"original_file_path"`
	Cuts             []CutSpec `json:"cuts" yaml:"cuts"`
	OldFilePaths     []string  `json:"old_file_paths,omitempty" yaml:"old_file_paths,omitempty"`
}

type CutSpec struct {
	StartPage *PageNumber `json:"start_page" yaml:"start_page"`
	EndPage   *PageNumber `json:"end_page" yaml:"end_page"`
	PDFName   *string     `json:"pdf_name,omitempty" yaml:"pdf_name,omitempty"`
	IsModify  Flag        `json:"is_modify" yaml:"is_modify"`
}

// FinalPath is one cut of the flat form, naming its own source.
type FinalPath struct {
	OriginalFilePath string `json:"original_file_path" yaml:"original_file_path"`
	CutSpec          `yaml:",inline"`
	OldFilePaths     []string `json:"old_file_paths,omitempty" yaml:"old_file_paths,omitempty"`
}

// PageNumber accepts 3 or "3".
type PageNumber int

func (p *PageNumber) UnmarshalJSON(b []byte) error {
	s := string(bytes.TrimSpace(b))
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("page number %s is not an integer", string(b))
	}
	*p = PageNumber(n)
	return nil
}

func (p *PageNumber) UnmarshalYAML(n *yaml.Node) error {
	v, err := strconv.Atoi(strings.TrimSpace(n.Value))
	if err != nil {
		return fmt.Errorf("line %d: page number %q is not an integer", n.Line, n.Value)
	}
	*p = PageNumber(v)
	return nil
}

// Flag accepts true, "true", "True" and friends. Anything else is false.
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		*f = Flag(t)
	case string:
		*f = Flag(strings.EqualFold(strings.TrimSpace(t), "true"))
	case float64:
		*f = Flag(t != 0)
	default:
		*f = false
	}
	return nil
}

func (f *Flag) UnmarshalYAML(n *yaml.Node) error {
	*f = Flag(strings.EqualFold(strings.TrimSpace(n.Value), "true"))
	return nil
}

// DecodeCutRequest parses a /cut_pdf body. Structural problems wrap
// split.ErrMalformedRequest.
func DecodeCutRequest(b []byte) (CutRequest, error) {
	var req CutRequest
	if err := json.Unmarshal(b, &req); err != nil {
		return CutRequest{}, fmt.Errorf("%w: %v", split.ErrMalformedRequest, err)
	}
	return req, nil
}

// ToGroups converts the request into explicit split groups. Flat cuts are
// grouped by source in first-seen order.
func (r CutRequest) ToGroups() ([]split.Group, error) {
	switch {
	case len(r.Groups) > 0 && len(r.FinalPaths) > 0:
		return nil, fmt.Errorf("%w: use either groups or final_paths", split.ErrMalformedRequest)
	case len(r.Groups) > 0:
		if len(r.OldFilePaths) > 0 {
			return nil, fmt.Errorf("%w: old_file_paths belongs inside each group", split.ErrMalformedRequest)
		}
		return r.fromGroups()
	case len(r.FinalPaths) > 0:
		return r.fromFinalPaths()
	}
	return nil, fmt.Errorf("%w: groups or final_paths is required", split.ErrMalformedRequest)
}

func (r CutRequest) fromGroups() ([]split.Group, error) {
	out := make([]split.Group, 0, len(r.Groups))
	for i, g := range r.Groups {
		if strings.TrimSpace(g.OriginalFilePath) == "" {
			return nil, fmt.Errorf("%w: group %d: original_file_path is required", split.ErrMalformedRequest, i+1)
		}
		if len(g.Cuts) == 0 {
			return nil, fmt.Errorf("%w: group %d: cuts is required", split.ErrMalformedRequest, i+1)
		}
		grp := split.Group{SourcePath: g.OriginalFilePath, Explicit: true, StaleOutputs: g.OldFilePaths}
		for j, c := range g.Cuts {
			cut, err := c.toCut()
			if err != nil {
				return nil, fmt.Errorf("%w: group %d cut %d: %v", split.ErrMalformedRequest, i+1, j+1, err)
			}
			grp.Cuts = append(grp.Cuts, cut)
		}
		out = append(out, grp)
	}
	return out, nil
}

func (r CutRequest) fromFinalPaths() ([]split.Group, error) {
	var (
		out   []split.Group
		index = map[string]int{}
	)
	for i, fp := range r.FinalPaths {
		src := strings.TrimSpace(fp.OriginalFilePath)
		if src == "" {
			return nil, fmt.Errorf("%w: item %d: original_file_path is required", split.ErrMalformedRequest, i+1)
		}
		cut, err := fp.toCut()
		if err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", split.ErrMalformedRequest, i+1, err)
		}
		gi, ok := index[src]
		if !ok {
			gi = len(out)
			index[src] = gi
			out = append(out, split.Group{SourcePath: src, Explicit: true})
		}
		out[gi].Cuts = append(out[gi].Cuts, cut)
		out[gi].StaleOutputs = append(out[gi].StaleOutputs, fp.OldFilePaths...)
	}
	for _, old := range r.OldFilePaths {
		gi, ok := ownerOf(old, out)
		if !ok {
			return nil, fmt.Errorf("%w: old file %s does not belong to any source", split.ErrMalformedRequest, old)
		}
		out[gi].StaleOutputs = append(out[gi].StaleOutputs, old)
	}
	return out, nil
}

// ownerOf finds the group whose outputs are named like old: same folder
// and a "{stem}_" prefix. The longest stem wins.
func ownerOf(old string, groups []split.Group) (int, bool) {
	best, bestLen := -1, -1
	dir, base := filepath.Dir(filepath.Clean(old)), filepath.Base(old)
	for i, g := range groups {
		if filepath.Dir(filepath.Clean(g.SourcePath)) != dir {
			continue
		}
		stem := strings.TrimSuffix(filepath.Base(g.SourcePath), filepath.Ext(g.SourcePath))
		if strings.HasPrefix(base, stem+"_") && len(stem) > bestLen {
			best, bestLen = i, len(stem)
		}
	}
	return best, best >= 0
}

func (c CutSpec) toCut() (split.Cut, error) {
	if c.StartPage == nil || c.EndPage == nil {
		return split.Cut{}, fmt.Errorf("start_page and end_page are required")
	}
	name := defaultPDFName
	if c.PDFName != nil {
		name = *c.PDFName
	}
	if strings.TrimSpace(name) == "" {
		return split.Cut{}, fmt.Errorf("pdf_name is empty")
	}
	return split.Cut{Start: int(*c.StartPage), End: int(*c.EndPage), PDFName: name, Modify: bool(c.IsModify)}, nil
}
