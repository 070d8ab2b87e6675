package cli

import (
	"context"
	"time"

	jsoniter "github.com/json-iterator/go"
	flag "github.com/spf13/pflag"

	"github.com/AntonStoeckl/dynamic-patient-lists-go/httpapi"
)

// ResolveOutput is what resolve prints. Patients is filled with --patients, Encounters otherwise.
type ResolveOutput struct {
	List       string                      `json:"list"`
	Name       string                      `json:"name"`
	DurationMS float64                     `json:"durationMs"`
	Encounters []httpapi.EncounterResponse `json:"encounters,omitempty"`
	Patients   []string                    `json:"patients,omitempty"`
}

func (a *app) resolveCmd() *Command {
	fs := flag.NewFlagSet("resolve", flag.ContinueOnError)
	listUUID := fs.StringP("list", "l", "", "uuid of the patient list to resolve")
	patients := fs.BoolP("patients", "p", false, "print distinct patients instead of encounters")
	demo := fs.Bool("demo", false, "resolve against in-memory demo data ("+DemoListAwaiting+", ...)")

	return &Command{
		Flags: fs,
		Usage: "resolve --list <uuid> [--patients] [--demo]",
		Short: "Resolve a patient list and print it as JSON",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			if *listUUID == "" {
				return ErrListRequired
			}

			return a.resolve(ctx, o, *listUUID, *patients, backendOptions{demo: *demo})
		},
	}
}

func (a *app) resolve(ctx context.Context, o *IO, listUUID string, patientsOnly bool, opts backendOptions) error {
	b, err := a.openBackend(ctx, opts)
	if err != nil {
		return err
	}
	defer b.close()

	list, err := b.lists.GetByUUID(ctx, listUUID)
	if err != nil {
		return err
	}

	output := ResolveOutput{List: list.UUID, Name: list.Name}
	start := time.Now()

	if patientsOnly {
		patients, err := b.resolver.ResolvePatients(ctx, list)
		if err != nil {
			return err
		}

		output.Patients = patients
	} else {
		encounters, err := b.resolver.ResolveEncounters(ctx, list)
		if err != nil {
			return err
		}

		output.Encounters = httpapi.NewEncounterResponses(encounters)
	}

	output.DurationMS = float64(time.Since(start).Microseconds()) / 1000

	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(o.Out())
	enc.SetIndent("", "  ")

	return enc.Encode(output)
}
