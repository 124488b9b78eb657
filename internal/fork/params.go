// Package fork reads and writes the files exchanged with DAKOTA's fork
// interface: one parameters file in, one results file out per evaluation.
package fork

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cwbudde/dakotadriver/internal/bridge"
)

// Params is one parsed parameters file in DAKOTA's standard format.
type Params struct {
	Values    []float64 // continuous variables, in deck order
	Labels    []string  // variable descriptors
	ASV       []int     // one entry per response function
	Functions []string  // response descriptors, when the engine sent them
	DVV       []int
	EvalID    int
}

// Request converts the parameters into a bridge request.
func (p *Params) Request() bridge.Request {
	return bridge.Request{CV: p.Values, ASV: p.ASV, EvalID: p.EvalID, Labels: p.Labels}
}

// ReadParamsFile opens and parses path.
func ReadParamsFile(path string) (*Params, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parameters file: %w", err)
	}
	defer f.Close()
	return ReadParams(f)
}

// ReadParams parses a standard-format parameters file. Each line is a value
// followed by a tag. Blocks are announced by a count line ("2 variables")
// and followed by that many entries. Unknown trailing blocks are skipped.
func ReadParams(r io.Reader) (*Params, error) {
	p := &Params{}
	lr := &lineReader{s: bufio.NewScanner(r)}

	n, err := lr.count("variables")
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		value, label, err := lr.pair()
		if err != nil {
			return nil, fmt.Errorf("variable %d: %w", i+1, err)
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("variable %s: invalid value %q", label, value)
		}
		p.Values = append(p.Values, v)
		p.Labels = append(p.Labels, label)
	}

	m, err := lr.count("functions")
	if err != nil {
		return nil, err
	}
	for i := 0; i < m; i++ {
		value, tag, err := lr.pair()
		if err != nil {
			return nil, fmt.Errorf("function %d: %w", i+1, err)
		}
		asv, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid active set value %q", tag, value)
		}
		p.ASV = append(p.ASV, asv)
		// Newer engines tag the entry "ASV_1:f".
		if _, name, ok := strings.Cut(tag, ":"); ok {
			p.Functions = append(p.Functions, name)
		}
	}

	for {
		value, tag, err := lr.pair()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch tag {
		case "eval_id":
			id, err := parseEvalID(value)
			if err != nil {
				return nil, err
			}
			p.EvalID = id
		case "derivative_variables":
			k, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("invalid derivative_variables count %q", value)
			}
			for i := 0; i < k; i++ {
				dv, _, err := lr.pair()
				if err != nil {
					return nil, fmt.Errorf("derivative variable %d: %w", i+1, err)
				}
				id, err := strconv.Atoi(dv)
				if err != nil {
					return nil, fmt.Errorf("invalid derivative variable id %q", dv)
				}
				p.DVV = append(p.DVV, id)
			}
		default:
			// analysis_components, metadata and similar count-prefixed blocks
			if k, err := strconv.Atoi(value); err == nil {
				if err := lr.skip(k); err != nil {
					return nil, fmt.Errorf("%s: %w", tag, err)
				}
			}
		}
	}

	return p, nil
}

// parseEvalID accepts "7" as well as the hierarchical "1:7" form, whose
// last component is the evaluation number.
func parseEvalID(s string) (int, error) {
	if i := strings.LastIndex(s, ":"); i >= 0 {
		s = s[i+1:]
	}
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid eval_id %q", s)
	}
	return id, nil
}

type lineReader struct {
	s *bufio.Scanner
}

// pair returns the two fields of the next non-empty line.
func (lr *lineReader) pair() (string, string, error) {
	for lr.s.Scan() {
		fields := strings.Fields(lr.s.Text())
		switch len(fields) {
		case 0:
			continue
		case 1:
			return "", "", fmt.Errorf("malformed line %q", lr.s.Text())
		}
		return fields[0], fields[1], nil
	}
	if err := lr.s.Err(); err != nil {
		return "", "", err
	}
	return "", "", io.EOF
}

func (lr *lineReader) count(tag string) (int, error) {
	value, got, err := lr.pair()
	if err == io.EOF {
		return 0, fmt.Errorf("missing %s count", tag)
	}
	if err != nil {
		return 0, err
	}
	if got != tag {
		return 0, fmt.Errorf("expected %s count, got %q", tag, got)
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s count %q", tag, value)
	}
	return n, nil
}

func (lr *lineReader) skip(n int) error {
	for i := 0; i < n; i++ {
		if _, _, err := lr.pair(); err != nil {
			if err == io.EOF {
				return io.ErrUnexpectedEOF
			}
			return err
		}
	}
	return nil
}
