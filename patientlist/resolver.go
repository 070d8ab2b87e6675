package patientlist

import (
	"context"
	"errors"
	"slices"
	"time"
)

const (
	logMsgListNotFound         = "referenced patient list not found, contributing no encounters"
	logMsgReferenceNotFound    = "reference not found, applying no constraint"
	logMsgLoadListFailed       = "failed to load referenced patient list"
	logMsgResolveRefFailed     = "failed to resolve reference"
	logMsgQueryFailed          = "encounter store query failed"
	logMsgCycleDetected        = "cyclic patient list reference detected"
	logMsgMaxDepthExceeded     = "patient list nesting too deep"
	logMsgListResolved         = "patient list resolved"
	logMsgResolutionCompleted  = "resolution completed"
	logMsgOperation            = "patientlist operation: "
	logAttrError               = "error"
	logAttrListUUID            = "list_uuid"
	logAttrReference           = "reference"
	logAttrReferenceKind       = "reference_kind"
	logAttrPath                = "path"
	logAttrDepth               = "depth"
	logAttrStrategy            = "strategy"
	logAttrEncounterCount      = "encounter_count"
	logAttrCandidateCount      = "candidate_count"
	logAttrExcludedCount       = "excluded_count"
	logAttrDurationMS          = "duration_ms"
	strategyInLists            = "in_lists"
	strategyEncounterStore     = "encounter_store"
	referenceKindEncounterType = "encounter_type"
	referenceKindLocation      = "location"
	referenceKindProvider      = "provider"
	referenceKindPatient       = "patient"
)

// Resolver evaluates PatientList search queries into encounters and patients.
//
// It holds no mutable state between calls, so one Resolver can serve concurrent callers as long as its
// collaborators are safe for concurrent reads.
type Resolver struct {
	lists            ListGetter
	encounters       EncounterStore
	lookups          Lookups
	parser           QueryParser
	location         *time.Location
	maxDepth         int
	logger           Logger
	contextualLogger ContextualLogger
	metricsCollector MetricsCollector
	tracingCollector TracingCollector
}

// Option defines a functional option for configuring a Resolver.
type Option func(*Resolver) error

// WithLookups sets the Lookups used to resolve encounter type, location, provider and patient references.
// Without it, references are used as ids unchanged (IdentityLookups).
func WithLookups(lookups Lookups) Option {
	return func(r *Resolver) error {
		if lookups != nil {
			r.lookups = lookups
		}

		return nil
	}
}

// WithMaxDepth limits how many lists may be nested along one resolution path. Zero means unlimited.
func WithMaxDepth(maxDepth int) Option {
	return func(r *Resolver) error {
		if maxDepth < 0 {
			return ErrInvalidMaxDepth
		}

		r.maxDepth = maxDepth

		return nil
	}
}

// WithLocation sets the time zone for query dates without an explicit offset. Defaults to UTC.
func WithLocation(location *time.Location) Option {
	return func(r *Resolver) error {
		r.location = location
		return nil
	}
}

// WithLogger sets the logger for the Resolver.
//
// Debug level: per-list resolution details and references that did not resolve
// Info level: completed top-level resolutions with counts and durations
// Warn level: malformed query dates and missing referenced lists
// Error level: collaborator failures and cyclic references.
func WithLogger(logger Logger) Option {
	return func(r *Resolver) error {
		r.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger, which receives the same messages with trace correlation.
func WithContextualLogger(logger ContextualLogger) Option {
	return func(r *Resolver) error {
		r.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Resolver.
func WithMetrics(collector MetricsCollector) Option {
	return func(r *Resolver) error {
		r.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Resolver.
func WithTracing(collector TracingCollector) Option {
	return func(r *Resolver) error {
		r.tracingCollector = collector
		return nil
	}
}

// NewResolver creates a Resolver reading list definitions from lists and encounters from encounters.
func NewResolver(lists ListGetter, encounters EncounterStore, options ...Option) (*Resolver, error) {
	if lists == nil {
		return nil, ErrNilListStore
	}

	if encounters == nil {
		return nil, ErrNilEncounterStore
	}

	r := &Resolver{
		lists:      lists,
		encounters: encounters,
		lookups:    IdentityLookups{},
	}

	for _, option := range options {
		if err := option(r); err != nil {
			return nil, err
		}
	}

	r.parser = NewQueryParser(WithParserLocation(r.location))

	return r, nil
}

// Parse exposes the Resolver's QueryParser, so callers see the criteria exactly as the Resolver does.
func (r *Resolver) Parse(searchQuery string) FilterCriteria {
	return r.parser.Parse(searchQuery)
}

// ResolveEncounters returns the encounters matching the list's search query, in candidate order.
//
// Referenced lists that do not exist contribute nothing and unresolvable references apply no constraint.
// A list that references itself along the resolution path fails with a *CyclicReferenceError.
func (r *Resolver) ResolveEncounters(ctx context.Context, list PatientList) (Encounters, error) {
	tracer, ctx := r.startResolveTracing(ctx, list)
	start := time.Now()

	encounters, err := r.resolve(ctx, list, nil)
	duration := time.Since(start)

	if err != nil {
		r.recordResolveError(ctx, err, duration)
		tracer.finishError(err, duration)

		return nil, err
	}

	r.recordResolveSuccess(ctx, list, len(encounters), duration)
	tracer.finishSuccess(len(encounters), duration)

	return encounters, nil
}

// ResolvePatients returns the distinct patients of ResolveEncounters, in order of their first encounter.
func (r *Resolver) ResolvePatients(ctx context.Context, list PatientList) ([]PatientID, error) {
	encounters, err := r.ResolveEncounters(ctx, list)
	if err != nil {
		return nil, err
	}

	return DistinctPatients(encounters), nil
}

// resolve is the depth-first traversal over list references. path holds the UUIDs of the lists currently being
// resolved, outermost first; lists reached again along separate branches are not cycles.
func (r *Resolver) resolve(ctx context.Context, list PatientList, path []string) (Encounters, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if list.SearchQuery == "" {
		return Encounters{}, nil
	}

	if list.UUID != "" && slices.Contains(path, list.UUID) {
		cycleErr := &CyclicReferenceError{Path: slices.Concat(path, []string{list.UUID})}
		r.logErrorContext(ctx, logMsgCycleDetected, cycleErr, logAttrPath, cycleErr.Path)

		return nil, cycleErr
	}

	path = slices.Concat(path, []string{list.UUID})
	if r.maxDepth > 0 && len(path) > r.maxDepth {
		r.logErrorContext(ctx, logMsgMaxDepthExceeded, ErrMaxDepthExceeded, logAttrListUUID, list.UUID, logAttrDepth, len(path))

		return nil, ErrMaxDepthExceeded
	}

	criteria := r.parser.Parse(list.SearchQuery)
	for _, field := range criteria.MalformedFields() {
		r.logWarnContext(ctx, logMsgMalformedDate, logAttrListUUID, list.UUID, logAttrField, field)
	}

	refs, err := r.resolveReferences(ctx, criteria)
	if err != nil {
		return nil, err
	}

	var candidates Encounters
	strategy := strategyEncounterStore

	if criteria.UsesInLists() {
		strategy = strategyInLists
		candidates, err = r.resolveListRefs(ctx, criteria.InListRefs(), path)
	} else {
		candidates, err = r.queryEncounterStore(ctx, criteria, refs)
	}

	if err != nil {
		return nil, err
	}

	excluded, err := r.resolveListRefs(ctx, criteria.NotInListRefs(), path)
	if err != nil {
		return nil, err
	}

	candidateCount := len(candidates)

	if criteria.UsesInLists() {
		candidates = keepMatchingCriteria(candidates, criteria, refs)
	}

	candidates = dropSupersededByExclusions(candidates, excluded)

	if criteria.RequiresDrugOrder() {
		candidates = keepWithDrugOrders(candidates)
	}

	r.logDebugContext(
		ctx,
		logMsgListResolved,
		logAttrListUUID, list.UUID,
		logAttrDepth, len(path),
		logAttrStrategy, strategy,
		logAttrCandidateCount, candidateCount,
		logAttrExcludedCount, len(excluded),
		logAttrEncounterCount, len(candidates),
	)

	return candidates, nil
}

// resolveListRefs concatenates the encounters of the referenced lists in reference order, without deduplication.
func (r *Resolver) resolveListRefs(ctx context.Context, uuids []string, path []string) (Encounters, error) {
	all := make(Encounters, 0)

	for _, uuid := range uuids {
		list, err := r.lists.GetByUUID(ctx, uuid)
		if errors.Is(err, ErrPatientListNotFound) {
			r.logWarnContext(ctx, logMsgListNotFound, logAttrListUUID, uuid)
			continue
		}

		if err != nil {
			r.logErrorContext(ctx, logMsgLoadListFailed, err, logAttrListUUID, uuid)
			return nil, errors.Join(ErrLoadingPatientListFailed, err)
		}

		if list.UUID == "" {
			list.UUID = uuid
		}

		encounters, err := r.resolve(ctx, list, path)
		if err != nil {
			return nil, err
		}

		all = append(all, encounters...)
	}

	return all, nil
}

func (r *Resolver) queryEncounterStore(ctx context.Context, criteria FilterCriteria, refs resolvedReferences) (Encounters, error) {
	builder := BuildEncounterQuery().
		ForPatient(refs.patientID).
		AtLocation(refs.locationID).
		OccurredFrom(criteria.StartDate()).
		OccurredUntil(criteria.EndDate())

	if refs.encounterTypeID != "" {
		builder = builder.WithAnyEncounterTypeOf(refs.encounterTypeID)
	}

	if refs.providerID != "" {
		builder = builder.WithAnyProviderOf(refs.providerID)
	}

	encounters, err := r.encounters.Query(ctx, builder.Finalize())
	if err != nil {
		r.logErrorContext(ctx, logMsgQueryFailed, err)
		return nil, errors.Join(ErrQueryingEncountersFailed, err)
	}

	return encounters, nil
}

func (r *Resolver) resolveReferences(ctx context.Context, criteria FilterCriteria) (resolvedReferences, error) {
	var refs resolvedReferences
	var err error

	if refs.encounterTypeID, err = r.resolveReference(
		ctx, referenceKindEncounterType, criteria.EncounterTypeRef(), r.lookups.ResolveEncounterType,
	); err != nil {
		return resolvedReferences{}, err
	}

	if refs.locationID, err = r.resolveReference(
		ctx, referenceKindLocation, criteria.LocationRef(), r.lookups.ResolveLocation,
	); err != nil {
		return resolvedReferences{}, err
	}

	if refs.providerID, err = r.resolveReference(
		ctx, referenceKindProvider, criteria.ProviderRef(), r.lookups.ResolveProvider,
	); err != nil {
		return resolvedReferences{}, err
	}

	if refs.patientID, err = r.resolveReference(
		ctx, referenceKindPatient, criteria.PatientRef(), r.lookups.ResolvePatient,
	); err != nil {
		return resolvedReferences{}, err
	}

	return refs, nil
}

func (r *Resolver) resolveReference(
	ctx context.Context,
	kind string,
	ref string,
	lookup func(context.Context, string) (string, error),
) (string, error) {

	if ref == "" {
		return "", nil
	}

	id, err := lookup(ctx, ref)
	if errors.Is(err, ErrReferenceNotFound) {
		r.logDebugContext(ctx, logMsgReferenceNotFound, logAttrReferenceKind, kind, logAttrReference, ref)
		return "", nil
	}

	if err != nil {
		r.logErrorContext(ctx, logMsgResolveRefFailed, err, logAttrReferenceKind, kind, logAttrReference, ref)
		return "", errors.Join(ErrResolvingReferenceFailed, err)
	}

	return id, nil
}
