package types

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Report is the aggregated scan result of a project: package NVR -> check -> code -> messages.
// Packages, checks and codes keep the order in which they were inserted, in YAML and JSON alike.
type Report struct {
	Packages []Package
}

type Package struct {
	NVR    string
	Checks []Check
}

type Check struct {
	Name  string
	Codes []Code
}

type Code struct {
	Code     string
	Messages []string
}

// Put stores the findings of one package. Putting an NVR that is already present replaces its
// findings in place.
func (r *Report) Put(nvr string, findings Findings) {
	p := Package{NVR: nvr, Checks: make([]Check, 0, len(findings))}
	for _, f := range findings {
		c := Check{Name: f.Check, Codes: make([]Code, 0, len(f.Diagnostics))}
		for _, d := range f.Diagnostics {
			c.Codes = append(c.Codes, Code{Code: d.Code, Messages: []string{d.Diag}})
		}
		p.Checks = append(p.Checks, c)
	}

	for i := range r.Packages {
		if r.Packages[i].NVR == nvr {
			r.Packages[i] = p
			return
		}
	}
	r.Packages = append(r.Packages, p)
}

// Failed reports whether any package has at least one finding.
func (r Report) Failed() bool {
	for _, p := range r.Packages {
		if len(p.Checks) > 0 {
			return true
		}
	}
	return false
}

// MarshalYAML renders the report as nested block mappings in insertion order.
func (r Report) MarshalYAML() (any, error) {
	root := mapping()
	for _, p := range r.Packages {
		checks := mapping()
		for _, c := range p.Checks {
			codes := mapping()
			for _, cd := range c.Codes {
				msgs := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
				for _, m := range cd.Messages {
					msgs.Content = append(msgs.Content, scalar(m))
				}
				codes.Content = append(codes.Content, scalar(cd.Code), msgs)
			}
			checks.Content = append(checks.Content, scalar(c.Name), codes)
		}
		root.Content = append(root.Content, scalar(p.NVR), checks)
	}
	return root, nil
}

func mapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

// MarshalJSON renders the report as nested objects: {nvr: {check: {code: [messages]}}}.
func (r Report) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range r.Packages {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, p.NVR); err != nil {
			return nil, err
		}
		buf.WriteByte('{')
		for j, c := range p.Checks {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := writeKey(&buf, c.Name); err != nil {
				return nil, err
			}
			buf.WriteByte('{')
			for k, cd := range c.Codes {
				if k > 0 {
					buf.WriteByte(',')
				}
				if err := writeKey(&buf, cd.Code); err != nil {
					return nil, err
				}
				msgs := cd.Messages
				if msgs == nil {
					msgs = []string{}
				}
				bs, err := json.Marshal(msgs)
				if err != nil {
					return nil, errors.Wrap(err, "marshal messages")
				}
				buf.Write(bs)
			}
			buf.WriteByte('}')
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeKey(buf *bytes.Buffer, key string) error {
	bs, err := json.Marshal(key)
	if err != nil {
		return errors.Wrapf(err, "marshal key %q", key)
	}
	buf.Write(bs)
	buf.WriteByte(':')
	return nil
}

// UnmarshalJSON reads the nested objects written by MarshalJSON, keeping their order.
func (r *Report) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	d := json.NewDecoder(bytes.NewReader(data))
	var parsed Report
	if err := decodeObject(d, func(nvr string) error {
		p := Package{NVR: nvr, Checks: []Check{}}
		if err := decodeObject(d, func(name string) error {
			c := Check{Name: name, Codes: []Code{}}
			if err := decodeObject(d, func(code string) error {
				var msgs []string
				if err := d.Decode(&msgs); err != nil {
					return errors.Wrapf(err, "decode messages of %s", code)
				}
				c.Codes = append(c.Codes, Code{Code: code, Messages: msgs})
				return nil
			}); err != nil {
				return errors.Wrapf(err, "decode check %s", name)
			}
			p.Checks = append(p.Checks, c)
			return nil
		}); err != nil {
			return errors.Wrapf(err, "decode package %s", nvr)
		}
		parsed.Packages = append(parsed.Packages, p)
		return nil
	}); err != nil {
		return errors.Wrap(err, "decode report")
	}

	*r = parsed
	return nil
}

// decodeObject reads one JSON object from d, calling fn for every key with d positioned at its value.
func decodeObject(d *json.Decoder, fn func(key string) error) error {
	t, err := d.Token()
	if err != nil {
		return errors.Wrap(err, "read object start")
	}
	if delim, ok := t.(json.Delim); !ok || delim != '{' {
		return errors.Errorf("unexpected token. expected: %q, actual: %v", "{", t)
	}

	for d.More() {
		t, err := d.Token()
		if err != nil {
			return errors.Wrap(err, "read key")
		}
		key, ok := t.(string)
		if !ok {
			return errors.Errorf("unexpected key. expected: string, actual: %v", t)
		}
		if err := fn(key); err != nil {
			return err
		}
	}

	if _, err := d.Token(); err != nil {
		return errors.Wrap(err, "read object end")
	}
	return nil
}
