package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/mind-engage/everify-tester/internal/everify"
)

type Printer struct {
	out io.Writer
}

func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

func (p *Printer) PrintConfig(store *everify.Store) {
	cfg := store.Config().Redacted()
	w := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(p.out, "\nConfiguration:")
	fmt.Fprintf(w, "Environment\t%s\n", cfg.Environment)
	fmt.Fprintf(w, "Tier\t%s (%s)\n", cfg.Tier, cfg.TierLabel())
	fmt.Fprintf(w, "Base URL\t%s\n", store.BaseURL())
	fmt.Fprintf(w, "Client ID\t%s\n", cfg.ClientID)
	fmt.Fprintf(w, "Client Secret\t%s\n", cfg.ClientSecret)
	fmt.Fprintf(w, "API Key\t%s\n", cfg.APIKey)
	w.Flush()
}

func (p *Printer) PrintSession(st everify.SessionState) {
	if !st.Authenticated {
		fmt.Fprintln(p.out, "\nNot authenticated.")
		return
	}
	w := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(p.out, "\nSession:")
	fmt.Fprintf(w, "Token\t%s\n", st.Token)
	fmt.Fprintf(w, "Issued\t%s\n", st.IssuedAt.Format(time.RFC3339))
	if !st.ExpiresAt.IsZero() {
		state := "valid"
		if st.Expired {
			state = "expired"
		}
		fmt.Fprintf(w, "Expires\t%s (%s, from %s)\n", st.ExpiresAt.Format(time.RFC3339), state, st.ExpirySource)
	}
	w.Flush()
}

func (p *Printer) PrintResult(r everify.Result) {
	fmt.Fprintf(p.out, "\n%s %s\n", r.Method, r.URL)
	if r.StatusCode != 0 {
		fmt.Fprintf(p.out, "Status: %d\n", r.StatusCode)
	}
	fmt.Fprintf(p.out, "Outcome: %s (%s)\n", r.Outcome, r.Duration.Round(time.Millisecond))
	if r.Notice != "" {
		fmt.Fprintf(p.out, "Notice: %s\n", r.Notice)
	}
	if len(r.Request) > 0 {
		fmt.Fprintf(p.out, "Request Body:\n%s\n", r.PrettyRequest())
	}
	fmt.Fprintf(p.out, "Response:\n%s\n", r.Pretty())
}

func (p *Printer) PrintQRSamples() {
	w := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(p.out, "\nSandbox QR test values:")
	fmt.Fprintln(w, "Type\tValue")
	for _, s := range everify.SandboxQRSamples() {
		fmt.Fprintf(w, "%s\t%s\n", s.Type, s.Value)
	}
	w.Flush()
}
