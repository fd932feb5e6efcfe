// Package parserpool keeps gnparser instances for concurrent parsing of
// scientific names. Parsing is computation, the package does no I/O.
package parserpool

import (
	"fmt"
	"runtime"

	"github.com/gnames/gnlib/ent/nomcode"
	"github.com/gnames/gnparser"
	"github.com/gnames/gnparser/ent/parsed"
)

// Pool provides parsers for botanical and zoological codes.
type Pool interface {
	// Parse parses a name with a parser of the given code. Safe for
	// concurrent use, blocks while all parsers of the code are busy.
	Parse(nameString string, code nomcode.Code) (parsed.Parsed, error)

	// Canonical returns the simple canonical form of a name, or the
	// trimmed input when the name cannot be parsed.
	Canonical(nameString string, code nomcode.Code) string

	// Close releases parsers. The pool cannot be used afterwards.
	Close()
}

type pool struct {
	botanical  chan gnparser.GNparser
	zoological chan gnparser.GNparser
}

// NewPool creates parsers for both codes, jobsNum of each. Zero jobsNum
// means runtime.NumCPU().
func NewPool(jobsNum int) Pool {
	if jobsNum <= 0 {
		jobsNum = runtime.NumCPU()
	}
	return &pool{
		botanical:  newCh(nomcode.Botanical, jobsNum),
		zoological: newCh(nomcode.Zoological, jobsNum),
	}
}

func newCh(code nomcode.Code, size int) chan gnparser.GNparser {
	cfg := gnparser.NewConfig(
		gnparser.OptCode(code),
		gnparser.OptWithDetails(true),
	)
	return gnparser.NewPool(cfg, size)
}

func (p *pool) Parse(nameString string, code nomcode.Code) (parsed.Parsed, error) {
	var ch chan gnparser.GNparser
	switch code {
	case nomcode.Botanical:
		ch = p.botanical
	case nomcode.Zoological:
		ch = p.zoological
	default:
		return parsed.Parsed{}, fmt.Errorf("unsupported nomenclatural code: %v", code)
	}

	parser := <-ch
	res := parser.ParseName(nameString)
	ch <- parser
	return res, nil
}

func (p *pool) Canonical(nameString string, code nomcode.Code) string {
	name := Clean(nameString)
	res, err := p.Parse(name, code)
	if err != nil || !res.Parsed || res.Canonical == nil {
		return name
	}
	return res.Canonical.Simple
}

func (p *pool) Close() {
	for _, ch := range []chan gnparser.GNparser{p.botanical, p.zoological} {
		if ch == nil {
			continue
		}
		close(ch)
		for range ch {
		}
	}
}
