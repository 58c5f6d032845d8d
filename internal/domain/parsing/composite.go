package parsing

import (
	"github.com/cryptaliagy/iti1121-grading/internal/domain/model"
)

// Func adapts a function to Parser. Errors and panics yield the zero fraction.
type Func func(output string) (model.ScoreFraction, error)

// Parse implements Parser.
func (f Func) Parse(output string) (result model.ScoreFraction) {
	defer func() {
		if recover() != nil {
			result = model.ScoreFraction{}
		}
	}()
	r, err := f(output)
	if err != nil {
		return model.ScoreFraction{}
	}
	return r
}

// Composite returns the result of the first parser reporting possible > 0.
type Composite struct {
	parsers []Parser
}

// NewComposite builds a composite over parsers in the given order.
func NewComposite(parsers ...Parser) *Composite {
	return &Composite{parsers: parsers}
}

// Parse implements Parser.
func (c *Composite) Parse(output string) model.ScoreFraction {
	for _, p := range c.parsers {
		if f := safeParse(p, output); f.Possible > 0 {
			return f
		}
	}
	return model.ScoreFraction{}
}

// Itemize implements Itemizer using the first parser that recognizes output.
func (c *Composite) Itemize(output string) []model.TestScore {
	for _, p := range c.parsers {
		if f := safeParse(p, output); f.Possible > 0 {
			return safeItems(p, output)
		}
	}
	return nil
}

func safeParse(p Parser, output string) (f model.ScoreFraction) {
	defer func() {
		if recover() != nil {
			f = model.ScoreFraction{}
		}
	}()
	return p.Parse(output)
}

func safeItems(p Parser, output string) (items []model.TestScore) {
	defer func() {
		if recover() != nil {
			items = nil
		}
	}()
	return Items(p, output)
}
