package patientlist

import (
	"strings"
	"time"
)

const (
	QueryKeyEncounterType     = "encounterType="
	QueryKeyLocation          = "location="
	QueryKeyStartDate         = "startDate="
	QueryKeyEndDate           = "endDate="
	QueryKeyInList            = "inList="
	QueryKeyNotInList         = "notInList="
	QueryKeyProvider          = "provider="
	QueryKeyPatient           = "patient="
	QueryKeyContainsOrderType = "containsOrderType="

	queryPrefix       = "?"
	fragmentSeparator = "&"
	listRefSeparator  = ","
	encodeDateLayout  = "2006-01-02T15:04:05.000-0700"

	logMsgMalformedDate = "date string is malformed"
	logAttrField        = "field"
	logAttrValue        = "value"
)

// queryKeys is the match order for query fragments. A fragment is assigned to the first key it contains.
var queryKeys = []string{
	QueryKeyEncounterType,
	QueryKeyLocation,
	QueryKeyStartDate,
	QueryKeyEndDate,
	QueryKeyInList,
	QueryKeyNotInList,
	QueryKeyProvider,
	QueryKeyPatient,
	QueryKeyContainsOrderType,
}

// supportedDateLayouts are tried in order, the first one that parses wins.
// Z0700 accepts both a numeric offset and a literal "Z", Z07:00 accepts an RFC 3339 offset.
var supportedDateLayouts = []string{
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006-1-2",
}

// prefixDateLayouts are tried on the leading part of a value when no supported layout matches it as a whole.
var prefixDateLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// QueryParser turns PatientList search queries into FilterCriteria.
type QueryParser struct {
	logger   Logger
	location *time.Location
}

// ParserOption defines a functional option for configuring a QueryParser.
type ParserOption func(*QueryParser)

// WithParserLogger sets the logger that receives warnings about malformed query values.
func WithParserLogger(logger Logger) ParserOption {
	return func(p *QueryParser) {
		p.logger = logger
	}
}

// WithParserLocation sets the time zone for date values without an explicit offset. Defaults to UTC.
func WithParserLocation(location *time.Location) ParserOption {
	return func(p *QueryParser) {
		if location != nil {
			p.location = location
		}
	}
}

// NewQueryParser creates a QueryParser with optional configuration.
func NewQueryParser(options ...ParserOption) QueryParser {
	p := QueryParser{location: time.UTC}

	for _, option := range options {
		option(&p)
	}

	return p
}

// ParseQuery parses a search query with a default QueryParser.
func ParseQuery(raw string) FilterCriteria {
	return NewQueryParser().Parse(raw)
}

// Parse parses a search query of the form
//
//	?encounterType=<uuid>&startDate=2012-05-07&endDate=2012-05-08&inList=<uuid>,<uuid>&notInList=<uuid>
//
// It never fails: unknown fragments are ignored and malformed dates leave the date unset.
func (p QueryParser) Parse(raw string) FilterCriteria {
	var c FilterCriteria

	query := strings.TrimPrefix(raw, queryPrefix)
	if query == "" {
		return c
	}

	for _, fragment := range strings.Split(query, fragmentSeparator) {
		for _, key := range queryKeys {
			_, value, found := strings.Cut(fragment, key)
			if !found {
				continue
			}

			p.apply(&c, key, value)

			break
		}
	}

	return c
}

func (p QueryParser) apply(c *FilterCriteria, key, value string) {
	switch key {
	case QueryKeyEncounterType:
		c.encounterTypeRef = value
	case QueryKeyLocation:
		c.locationRef = value
	case QueryKeyStartDate:
		c.startDate = p.parseDateField(c, key, value)
	case QueryKeyEndDate:
		c.endDate = p.parseDateField(c, key, value)
	case QueryKeyInList:
		c.inListRefs = append(c.inListRefs, splitListRefs(value)...)
	case QueryKeyNotInList:
		c.notInListRefs = append(c.notInListRefs, splitListRefs(value)...)
	case QueryKeyProvider:
		c.providerRef = value
	case QueryKeyPatient:
		c.patientRef = value
	case QueryKeyContainsOrderType:
		c.containsOrderType = value
	}
}

func (p QueryParser) parseDateField(c *FilterCriteria, key, value string) time.Time {
	date, ok := p.ParseDate(value)
	if !ok {
		field := strings.TrimSuffix(key, "=")
		c.malformedFields = append(c.malformedFields, field)

		if p.logger != nil {
			p.logger.Warn(logMsgMalformedDate, logAttrField, field, logAttrValue, value)
		}
	}

	return date
}

// ParseDate tries all supported layouts in order, then the fixed-width layouts on a leading prefix of the input.
// It returns false if none of them parses.
func (p QueryParser) ParseDate(value string) (time.Time, bool) {
	location := p.location
	if location == nil {
		location = time.UTC
	}

	for _, layout := range supportedDateLayouts {
		date, err := time.ParseInLocation(layout, value, location)
		if err == nil {
			return date, true
		}
	}

	for _, layout := range prefixDateLayouts {
		if len(value) <= len(layout) {
			continue
		}

		date, err := time.ParseInLocation(layout, value[:len(layout)], location)
		if err == nil {
			return date, true
		}
	}

	return time.Time{}, false
}

func splitListRefs(value string) []string {
	refs := make([]string, 0)

	for _, ref := range strings.Split(value, listRefSeparator) {
		if ref = strings.TrimSpace(ref); ref != "" {
			refs = append(refs, ref)
		}
	}

	return refs
}
