package cli

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/AntonStoeckl/dynamic-patient-lists-go/config"
	"github.com/AntonStoeckl/dynamic-patient-lists-go/patientlist"
	"github.com/AntonStoeckl/dynamic-patient-lists-go/patientlist/inmemory"
	"github.com/AntonStoeckl/dynamic-patient-lists-go/patientlist/oteladapters"
	"github.com/AntonStoeckl/dynamic-patient-lists-go/patientlist/postgresengine"
)

const instrumentationName = "github.com/AntonStoeckl/dynamic-patient-lists-go"

// Demo list UUIDs, usable with resolve --demo.
const (
	DemoListInitial   = "demo-initial"
	DemoListDispensed = "demo-dispensed"
	DemoListAwaiting  = "demo-awaiting"

	demoTypeInitial  = "adult-initial"
	demoTypePharmacy = "pharmacy"
)

type app struct {
	cfg    config.Config
	logger *slog.Logger
}

func newApp(cfg config.Config, logger *slog.Logger) *app {
	return &app{cfg: cfg, logger: logger}
}

func (a *app) commands() []*Command {
	return []*Command{
		a.serveCmd(),
		a.resolveCmd(),
		a.migrateCmd(),
	}
}

// backend is what the commands run against: Postgres, or the in-memory demo data.
type backend struct {
	lists    patientlist.ListStore
	resolver *patientlist.Resolver
	close    func()
}

type backendOptions struct {
	demo      bool
	telemetry bool
}

func (a *app) openBackend(ctx context.Context, opts backendOptions) (backend, error) {
	resolverOptions := []patientlist.Option{
		patientlist.WithMaxDepth(a.cfg.MaxListDepth),
		patientlist.WithLocation(a.cfg.Location),
		patientlist.WithLogger(a.logger),
	}
	engineOptions := []postgresengine.Option{postgresengine.WithLogger(a.logger)}

	if opts.telemetry {
		contextualLogger := oteladapters.NewSlogBridgeLogger(instrumentationName)
		metrics := oteladapters.NewMetricsCollector(otel.Meter(instrumentationName))
		tracing := oteladapters.NewTracingCollector(otel.Tracer(instrumentationName))

		resolverOptions = append(resolverOptions,
			patientlist.WithContextualLogger(contextualLogger),
			patientlist.WithMetrics(metrics),
			patientlist.WithTracing(tracing),
		)
		engineOptions = append(engineOptions,
			postgresengine.WithContextualLogger(contextualLogger),
			postgresengine.WithMetrics(metrics),
			postgresengine.WithTracing(tracing),
		)
	}

	if opts.demo {
		lists, encounters, err := seedDemo(ctx)
		if err != nil {
			return backend{}, err
		}

		resolver, err := patientlist.NewResolver(lists, encounters, resolverOptions...)
		if err != nil {
			return backend{}, err
		}

		return backend{lists: lists, resolver: resolver, close: func() {}}, nil
	}

	engine, closeFn, err := config.OpenEngine(ctx, a.cfg.DBDriver, a.cfg.DatabaseDSN, engineOptions...)
	if err != nil {
		return backend{}, err
	}

	resolverOptions = append(resolverOptions, patientlist.WithLookups(engine.Lookups()))

	resolver, err := patientlist.NewResolver(engine.Lists(), engine.Encounters(), resolverOptions...)
	if err != nil {
		closeFn()
		return backend{}, err
	}

	return backend{lists: engine.Lists(), resolver: resolver, close: closeFn}, nil
}

// seedDemo builds in-memory stores with a small clinic: adult initial visits, drug dispensing,
// and a list of patients still awaiting their first dispensing.
func seedDemo(ctx context.Context) (*inmemory.ListStore, *inmemory.EncounterStore, error) {
	day := func(month, d int) time.Time {
		return time.Date(2024, time.Month(month), d, 9, 0, 0, 0, time.UTC)
	}
	drugOrder := []patientlist.Order{{UUID: "order-1", Concept: "artemether-lumefantrine", DrugOrder: true}}
	clinician := func(id string) map[string][]string {
		return map[string][]string{"clinician": {id}}
	}

	encounters := inmemory.NewEncounterStore(
		patientlist.Encounter{ID: 1, UUID: "enc-1", PatientID: "P-001", EncounterTypeID: demoTypeInitial,
			LocationID: "ward-a", OccurredAt: day(1, 3), ProvidersByRole: clinician("dr-okafor")},
		patientlist.Encounter{ID: 2, UUID: "enc-2", PatientID: "P-002", EncounterTypeID: demoTypePharmacy,
			LocationID: "pharmacy", OccurredAt: day(1, 2), Orders: drugOrder},
		patientlist.Encounter{ID: 3, UUID: "enc-3", PatientID: "P-002", EncounterTypeID: demoTypeInitial,
			LocationID: "ward-b", OccurredAt: day(1, 5), ProvidersByRole: clinician("dr-mensah")},
		patientlist.Encounter{ID: 4, UUID: "enc-4", PatientID: "P-001", EncounterTypeID: demoTypePharmacy,
			LocationID: "pharmacy", OccurredAt: day(1, 10), Orders: drugOrder},
		patientlist.Encounter{ID: 5, UUID: "enc-5", PatientID: "P-003", EncounterTypeID: demoTypeInitial,
			LocationID: "ward-a", OccurredAt: day(2, 1), ProvidersByRole: clinician("dr-okafor")},
	)

	lists := inmemory.NewListStore()
	for _, list := range []patientlist.PatientList{
		{UUID: DemoListInitial, Name: "Adult initial visits", SearchQuery: "?encounterType=" + demoTypeInitial},
		{
			UUID:        DemoListDispensed,
			Name:        "Drugs dispensed",
			SearchQuery: "?encounterType=" + demoTypePharmacy + "&containsOrderType=" + patientlist.OrderTypeDrugOrder,
		},
		{
			UUID:        DemoListAwaiting,
			Name:        "Awaiting dispensing",
			Description: "seen for an initial visit, no drugs dispensed since",
			SearchQuery: "?inList=" + DemoListInitial + "&notInList=" + DemoListDispensed,
		},
	} {
		if _, err := lists.Save(ctx, list); err != nil {
			return nil, nil, err
		}
	}

	return lists, encounters, nil
}
