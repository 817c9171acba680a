package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/jessevdk/go-flags"

	"github.com/mind-engage/everify-tester/internal/config"
	"github.com/mind-engage/everify-tester/internal/everify"
)

// Run parses args, loads the env file and either runs one action or starts
// the interactive menu.
func Run(ctx context.Context, args []string, out io.Writer, prompter Prompter) error {
	options := &Options{}
	if _, err := flags.ParseArgs(options, args); err != nil {
		return err
	}
	// Variables from the env file only become flag defaults on a second parse.
	if err := config.LoadDotEnv(options.EnvFile); err != nil {
		return fmt.Errorf("load %s: %w", options.EnvFile, err)
	}
	options = &Options{}
	if _, err := flags.ParseArgs(options, args); err != nil {
		return err
	}

	store, err := NewStore(options)
	if err != nil {
		return err
	}
	client := everify.NewClient(everify.ClientConfig{Timeout: options.Timeout})
	h := NewHandler(store, client, out, prompter)

	if options.Action != "" {
		return h.RunAction(ctx, everify.Action(options.Action), options.QRValue, options.LivenessID)
	}
	return h.Run(ctx)
}

// NewStore builds a configuration store from the options. Explicit
// credentials override the tier preset.
func NewStore(o *Options) (*everify.Store, error) {
	store := everify.NewStore(everify.Endpoints{Sandbox: o.SandboxURL, Production: o.ProdURL})
	sets := []struct {
		field everify.Field
		value string
	}{
		{everify.FieldEnvironment, o.Environment},
		{everify.FieldTier, o.Tier},
	}
	for _, s := range []struct {
		field everify.Field
		value string
	}{
		{everify.FieldClientID, o.ClientID},
		{everify.FieldClientSecret, o.ClientSecret},
		{everify.FieldAPIKey, o.APIKey},
	} {
		if s.value != "" {
			sets = append(sets, s)
		}
	}
	for _, s := range sets {
		if err := store.Set(s.field, s.value); err != nil {
			return nil, err
		}
	}
	return store, nil
}
