package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/jonboulle/clockwork"

	"github.com/mind-engage/everify-tester/internal/everify"
)

// Prompter asks the operator for input.
type Prompter interface {
	Select(message string, options []string, def string) (string, error)
	Input(message, def string) (string, error)
	Password(message string) (string, error)
}

type surveyPrompter struct{}

func (surveyPrompter) Select(message string, options []string, def string) (string, error) {
	var selected string
	prompt := &survey.Select{Message: message, Options: options}
	if def != "" {
		prompt.Default = def
	}
	err := survey.AskOne(prompt, &selected)
	return selected, err
}

func (surveyPrompter) Input(message, def string) (string, error) {
	var v string
	err := survey.AskOne(&survey.Input{Message: message, Default: def}, &v)
	return v, err
}

func (surveyPrompter) Password(message string) (string, error) {
	var v string
	err := survey.AskOne(&survey.Password{Message: message}, &v)
	return v, err
}

// Menu entries
const (
	menuAuthenticate = "Authenticate"
	menuVerifyPerson = "Verify person"
	menuQRCheck      = "QR check"
	menuQRVerify     = "QR verify"
	menuConfigure    = "Configure"
	menuSession      = "Show session"
	menuClearToken   = "Clear token"
	menuQuit         = "Quit"
)

var menu = []string{
	menuAuthenticate, menuVerifyPerson, menuQRCheck, menuQRVerify,
	menuConfigure, menuSession, menuClearToken, menuQuit,
}

type Handler struct {
	store      *everify.Store
	session    *everify.Session
	dispatcher *everify.Dispatcher
	prompter   Prompter
	printer    *Printer

	person     everify.Person
	qrValue    string
	livenessID string
}

func NewHandler(store *everify.Store, client *everify.Client, out io.Writer, prompter Prompter) *Handler {
	if prompter == nil {
		prompter = surveyPrompter{}
	}
	session := everify.NewSession(clockwork.NewRealClock(), 0)
	return &Handler{
		store:      store,
		session:    session,
		dispatcher: everify.NewDispatcher(store, session, client),
		prompter:   prompter,
		printer:    NewPrinter(out),
		person:     everify.SamplePerson(),
		qrValue:    everify.DefaultQRValue,
		livenessID: everify.DefaultQRLivenessID,
	}
}

// Run shows the menu until the operator quits or interrupts.
func (h *Handler) Run(ctx context.Context) error {
	h.printer.PrintConfig(h.store)
	for {
		choice, err := h.prompter.Select(h.menuTitle(), menu, "")
		if errors.Is(err, terminal.InterruptErr) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("menu: %w", err)
		}
		if choice == menuQuit {
			return nil
		}
		if err := h.handle(ctx, choice); err != nil {
			if errors.Is(err, terminal.InterruptErr) {
				continue
			}
			return err
		}
	}
}

func (h *Handler) menuTitle() string {
	cfg := h.store.Config()
	state := "not authenticated"
	if h.session.Token() != "" {
		state = "authenticated"
	}
	return fmt.Sprintf("[%s, %s, %s] Choose an action:", cfg.Environment, cfg.TierLabel(), state)
}

func (h *Handler) handle(ctx context.Context, choice string) error {
	switch choice {
	case menuAuthenticate:
		res, _ := h.dispatcher.Authenticate(ctx)
		h.printer.PrintResult(res)
	case menuVerifyPerson:
		if err := h.askPerson(); err != nil {
			return err
		}
		res, _ := h.dispatcher.VerifyPerson(ctx, h.person)
		h.printer.PrintResult(res)
	case menuQRCheck:
		if err := h.askQRValue(); err != nil {
			return err
		}
		res, _ := h.dispatcher.CheckQR(ctx, h.qrValue)
		h.printer.PrintResult(res)
	case menuQRVerify:
		if err := h.askQRValue(); err != nil {
			return err
		}
		v, err := h.prompter.Input("Face Liveness Session ID", h.livenessID)
		if err != nil {
			return err
		}
		h.livenessID = v
		res, _ := h.dispatcher.VerifyQR(ctx, h.qrValue, h.livenessID)
		h.printer.PrintResult(res)
	case menuConfigure:
		return h.configure()
	case menuSession:
		h.printer.PrintSession(h.session.State())
	case menuClearToken:
		h.session.Clear()
		h.printer.PrintSession(h.session.State())
	}
	return nil
}

func (h *Handler) configure() error {
	cfg := h.store.Config()
	fields := []string{
		string(everify.FieldEnvironment), string(everify.FieldTier),
		string(everify.FieldClientID), string(everify.FieldClientSecret), string(everify.FieldAPIKey),
	}
	field, err := h.prompter.Select("Field to change:", fields, "")
	if err != nil {
		return err
	}

	var value string
	switch everify.Field(field) {
	case everify.FieldEnvironment:
		value, err = h.prompter.Select("Environment:", []string{string(everify.Sandbox), string(everify.Production)}, string(cfg.Environment))
	case everify.FieldTier:
		value, err = h.prompter.Select("Tier Level:", []string{string(everify.Tier1), string(everify.Tier2)}, string(cfg.Tier))
	case everify.FieldClientSecret, everify.FieldAPIKey:
		value, err = h.prompter.Password(field + ":")
	default:
		value, err = h.prompter.Input(field+":", cfg.ClientID)
	}
	if err != nil {
		return err
	}
	if err := h.store.Set(everify.Field(field), value); err != nil {
		return err
	}
	h.printer.PrintConfig(h.store)
	return nil
}

func (h *Handler) askPerson() error {
	p := h.person
	for _, f := range []struct {
		label string
		dst   *string
	}{
		{"First Name", &p.FirstName},
		{"Middle Name", &p.MiddleName},
		{"Last Name", &p.LastName},
		{"Suffix", &p.Suffix},
		{"Birth Date (YYYY-MM-DD)", &p.BirthDate},
		{"Face Liveness Session ID", &p.FaceLivenessSessionID},
	} {
		v, err := h.prompter.Input(f.label, *f.dst)
		if err != nil {
			return err
		}
		*f.dst = v
	}
	h.person = p
	return nil
}

// askQRValue offers the sandbox samples before free input.
func (h *Handler) askQRValue() error {
	const custom = "Enter a value"
	opts := []string{"Keep: " + h.qrValue, custom}
	samples := everify.SandboxQRSamples()
	h.printer.PrintQRSamples()
	for i, s := range samples {
		opts = append(opts, strconv.Itoa(i+1)+". "+s.Type)
	}
	choice, err := h.prompter.Select("QR Code Value:", opts, "")
	if err != nil {
		return err
	}
	switch {
	case choice == opts[0]:
	case choice == custom:
		v, err := h.prompter.Input("QR Code Value", h.qrValue)
		if err != nil {
			return err
		}
		h.qrValue = v
	default:
		for i := range samples {
			if choice == opts[i+2] {
				h.qrValue = samples[i].Value
			}
		}
	}
	return nil
}

// RunAction runs a single action without prompting and reports a non-ok
// outcome as an error.
func (h *Handler) RunAction(ctx context.Context, action everify.Action, qrValue, livenessID string) error {
	if qrValue != "" {
		h.qrValue = qrValue
	}
	if livenessID != "" {
		h.livenessID = livenessID
	}

	var (
		res everify.Result
		err error
	)
	switch action {
	case everify.ActionAuthenticate:
		res, err = h.dispatcher.Authenticate(ctx)
	case everify.ActionVerifyPerson:
		res, err = h.dispatcher.VerifyPerson(ctx, h.person)
	case everify.ActionQRCheck:
		res, err = h.dispatcher.CheckQR(ctx, h.qrValue)
	case everify.ActionQRVerify:
		res, err = h.dispatcher.VerifyQR(ctx, h.qrValue, h.livenessID)
	default:
		return fmt.Errorf("unknown action %q", action)
	}
	h.printer.PrintResult(res)
	return err
}
