package session

import (
	"fmt"
	"io"
	"sync"

	"polybot-go/internal/book"
	"polybot-go/internal/execution"
)

// Presenter renders cycle reports and one-line notices.
type Presenter interface {
	Present(Report)
	Notice(string)
	FillResult(execution.Fill, error)
}

// TextPresenter writes the plain console view.
type TextPresenter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewTextPresenter writes to out, typically os.Stdout.
func NewTextPresenter(out io.Writer) *TextPresenter {
	return &TextPresenter{out: out}
}

func (p *TextPresenter) Present(r Report) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "\n[%d] mid=%.4f spr=%.4f topBid=%s topAsk=%s score=%.2f mom=%+.4f (%d samples)\n",
		r.Cycle, r.Reading.Mid, r.Reading.Spread, quote(r.Top.Bid), quote(r.Top.Ask),
		r.Reading.Score, r.Reading.Momentum, r.Reading.Samples)
	fmt.Fprintf(p.out, "paper: cash=%.2f pos=%.2f avg=%.4f NAV=%.2f fees=%.2f realized=%+.2f\n",
		r.Account.Cash, r.Position, r.AvgCost, r.NAV, r.Account.FeesPaid, r.Account.RealizedPnL)
	fmt.Fprintf(p.out, "suggestion: %s\n", r.Recommendation)
}

func (p *TextPresenter) Notice(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, msg)
}

func (p *TextPresenter) FillResult(fill execution.Fill, err error) {
	if err != nil {
		p.Notice("NO: " + err.Error())
		return
	}
	p.Notice("OK: " + fill.String())
}

func quote(q *book.Quote) string {
	if q == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f(%g)", q.Price, q.Size)
}
