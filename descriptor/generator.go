package descriptor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/surfdeck/surfdeck/entity"
	"github.com/surfdeck/surfdeck/errors"
)

// Plugin is a declarative plugin definition: the same shape as the
// descriptor document, but with implicit defaults and derivable identifiers
// so the plugin source does not have to repeat IDs it also needs at runtime.
type Plugin struct {
	ID            string
	Name          string
	Version       int // plugin build number; defaults to 1
	SchemaVersion int // defaults to entity.DefaultSchemaVersion
	Configuration map[string]any
	StartCommand  string
	Categories    []Category
	Settings      []Setting
}

// Category groups actions, states, events, and connectors in the controller UI.
type Category struct {
	ID         string // derived from the plugin ID and Name when empty
	Name       string
	ImagePath  string
	Actions    []Action
	States     []State
	Events     []Event
	Connectors []Connector
}

// Action is a user-triggerable operation.
type Action struct {
	ID          string // derived when empty
	Name        string
	Prefix      string // defaults to the owning category name
	Type        string // defaults to "communicate"
	Description string
	Format      string // may use $[n] / $[name] tokens referencing Data items
	HasHold     bool
	Data        []DataItem
}

// DataItem is one user-editable field of an action or connector.
type DataItem struct {
	ID            string // derived when empty
	Type          string // defaults to "text"
	Label         string
	Default       any
	ValueChoices  []string
	AllowDecimals *bool
	MinValue      *int
	MaxValue      *int
}

// State is a value the plugin pushes to the controller.
type State struct {
	ID           string // derived when empty
	Type         string // defaults to "text"
	Description  string
	Default      string
	ValueChoices []string
	ParentGroup  string
}

// Event is a controller-side trigger bound to a state.
type Event struct {
	ID           string // derived when empty
	Name         string
	Format       string
	ValueChoices []string
	ValueStateID string
}

// Connector is a continuously adjustable control bound to a plugin value.
type Connector struct {
	ID     string // derived when empty
	Name   string
	Format string
	Data   []DataItem
}

// Setting is a plugin configuration field shown in the controller's settings UI.
type Setting struct {
	Name       string
	Type       string // defaults to "text"
	Default    string
	MaxLength  *int
	IsPassword bool
	ReadOnly   bool
	MinValue   *int
	MaxValue   *int
}

// ValidationFailure is returned by Generate when the produced document does
// not validate. Generation never silently emits an invalid descriptor.
type ValidationFailure struct {
	Violations []Violation
}

func (e *ValidationFailure) Error() string {
	return fmt.Sprintf("generated descriptor failed validation with %d violation(s):\n%s",
		len(e.Violations), FormatViolations(e.Violations))
}

func (e *ValidationFailure) Unwrap() error {
	return errors.ErrInvalidDescriptor
}

// Generate expands the declarative definition into a full descriptor
// document and validates it. A document is only ever returned alongside a
// nil error; any violation is a hard failure carrying the complete report.
func (p Plugin) Generate() (Document, error) {
	if p.ID == "" {
		return nil, errors.WrapUsage(errors.ErrEmptyIdentifier, "Plugin", "Generate", "plugin id check")
	}
	if len(p.Categories) == 0 {
		return nil, errors.WrapUsage(errors.ErrMissingCategories, "Plugin", "Generate", "category check")
	}

	version := p.SchemaVersion
	if version == 0 {
		version = entity.DefaultSchemaVersion
	}
	build := p.Version
	if build == 0 {
		build = 1
	}

	doc := Document{
		"sdk":        version,
		"version":    build,
		"id":         p.ID,
		"name":       p.Name,
		"categories": []any{},
	}
	if p.Configuration != nil {
		doc["configuration"] = p.Configuration
	}
	if p.StartCommand != "" {
		doc["plugin_start_cmd"] = p.StartCommand
	}

	categories := make([]any, 0, len(p.Categories))
	for _, cat := range p.Categories {
		categories = append(categories, p.expandCategory(cat, version))
	}
	doc["categories"] = categories

	if version >= 3 && len(p.Settings) > 0 {
		settings := make([]any, 0, len(p.Settings))
		for _, s := range p.Settings {
			settings = append(settings, expandSetting(s))
		}
		doc["settings"] = settings
	}

	if violations := Validate(doc); len(violations) > 0 {
		return nil, &ValidationFailure{Violations: violations}
	}
	return doc, nil
}

func (p Plugin) expandCategory(cat Category, version int) map[string]any {
	catID := cat.ID
	if catID == "" {
		catID = deriveID(p.ID, slug(cat.Name))
	}
	out := map[string]any{
		"id":   catID,
		"name": cat.Name,
	}
	if cat.ImagePath != "" {
		out["imagepath"] = cat.ImagePath
	}

	actions := make([]any, 0, len(cat.Actions))
	for _, a := range cat.Actions {
		actions = append(actions, expandAction(a, catID, cat.Name, version))
	}
	out["actions"] = actions

	states := make([]any, 0, len(cat.States))
	for _, s := range cat.States {
		states = append(states, expandState(s, catID))
	}
	out["states"] = states

	events := make([]any, 0, len(cat.Events))
	for _, e := range cat.Events {
		events = append(events, expandEvent(e, catID))
	}
	out["events"] = events

	if version >= 4 {
		connectors := make([]any, 0, len(cat.Connectors))
		for _, c := range cat.Connectors {
			connectors = append(connectors, expandConnector(c, catID))
		}
		out["connectors"] = connectors
	}
	return out
}

func expandAction(a Action, catID, catName string, version int) map[string]any {
	id := a.ID
	if id == "" {
		id = deriveID(catID, "action", slug(a.Name))
	}
	out := map[string]any{
		"id":     id,
		"name":   a.Name,
		"prefix": defaultString(a.Prefix, catName),
		"type":   defaultString(a.Type, "communicate"),
	}
	if a.Description != "" {
		out["description"] = a.Description
	}
	if a.HasHold && version >= 3 {
		out["hasHoldFunctionality"] = true
	}
	data := make([]any, 0, len(a.Data))
	for _, d := range a.Data {
		data = append(data, expandDataItem(d, id, version))
	}
	if len(data) > 0 {
		out["data"] = data
	}
	if a.Format != "" {
		out["format"] = substituteFormatTokens(a.Format, data)
	}
	return out
}

func expandDataItem(d DataItem, ownerID string, version int) map[string]any {
	id := d.ID
	if id == "" {
		id = deriveID(ownerID, "data", slug(d.Label))
	}
	out := map[string]any{
		"id":    id,
		"type":  defaultString(d.Type, "text"),
		"label": d.Label,
	}
	if d.Default != nil {
		out["default"] = d.Default
	} else {
		out["default"] = ""
	}
	if len(d.ValueChoices) > 0 {
		out["valueChoices"] = toAnyList(d.ValueChoices)
	}
	if d.AllowDecimals != nil && version >= 2 {
		out["allowDecimals"] = *d.AllowDecimals
	}
	if version >= 3 {
		if d.MinValue != nil {
			out["minValue"] = *d.MinValue
		}
		if d.MaxValue != nil {
			out["maxValue"] = *d.MaxValue
		}
	}
	return out
}

func expandState(s State, catID string) map[string]any {
	id := s.ID
	if id == "" {
		id = deriveID(catID, "state", slug(s.Description))
	}
	out := map[string]any{
		"id":      id,
		"type":    defaultString(s.Type, "text"),
		"desc":    s.Description,
		"default": s.Default,
	}
	if len(s.ValueChoices) > 0 {
		out["valueChoices"] = toAnyList(s.ValueChoices)
	}
	if s.ParentGroup != "" {
		out["parentGroup"] = s.ParentGroup
	}
	return out
}

func expandEvent(e Event, catID string) map[string]any {
	id := e.ID
	if id == "" {
		id = deriveID(catID, "event", slug(e.Name))
	}
	return map[string]any{
		"id":           id,
		"name":         e.Name,
		"format":       e.Format,
		"type":         "communicate",
		"valueType":    "choice",
		"valueChoices": toAnyList(e.ValueChoices),
		"valueStateId": e.ValueStateID,
	}
}

func expandConnector(c Connector, catID string) map[string]any {
	id := c.ID
	if id == "" {
		id = deriveID(catID, "connector", slug(c.Name))
	}
	out := map[string]any{
		"id":   id,
		"name": c.Name,
	}
	data := make([]any, 0, len(c.Data))
	for _, d := range c.Data {
		data = append(data, expandDataItem(d, id, entity.DefaultSchemaVersion))
	}
	if len(data) > 0 {
		out["data"] = data
	}
	if c.Format != "" {
		out["format"] = substituteFormatTokens(c.Format, data)
	}
	return out
}

func expandSetting(s Setting) map[string]any {
	out := map[string]any{
		"name": s.Name,
		"type": defaultString(s.Type, "text"),
	}
	if s.Default != "" {
		out["default"] = s.Default
	}
	if s.MaxLength != nil {
		out["maxLength"] = *s.MaxLength
	}
	if s.IsPassword {
		out["isPassword"] = true
	}
	if s.ReadOnly {
		out["readOnly"] = true
	}
	if s.MinValue != nil {
		out["minValue"] = *s.MinValue
	}
	if s.MaxValue != nil {
		out["maxValue"] = *s.MaxValue
	}
	return out
}

// declTokens matches $[name] and $[n] placeholders in declarative format
// strings.
var declTokens = regexp.MustCompile(`\$\[(\w+)\]`)

// substituteFormatTokens rewrites $[name] and 1-based $[n] placeholders to
// the controller's {$dataID$} reference syntax. Names resolve against the
// last dotted segment of each data item's identifier; numbers index the data
// array in declaration order. Unresolvable tokens are left untouched so
// validation can report them as dangling references.
func substituteFormatTokens(format string, data []any) string {
	byName := make(map[string]string, len(data))
	byIndex := make([]string, 0, len(data))
	for _, item := range data {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id, _ := m["id"].(string)
		if id == "" {
			continue
		}
		segments := strings.Split(id, ".")
		byName[segments[len(segments)-1]] = id
		byIndex = append(byIndex, id)
	}

	return declTokens.ReplaceAllStringFunc(format, func(token string) string {
		name := declTokens.FindStringSubmatch(token)[1]
		if id, ok := byName[name]; ok {
			return "{$" + id + "$}"
		}
		if n, err := strconv.Atoi(name); err == nil && n >= 1 && n <= len(byIndex) {
			return "{$" + byIndex[n-1] + "$}"
		}
		return token
	})
}

// deriveID joins non-empty identifier segments with dots. An explicit
// identifier always wins over derivation; this is only used when the
// declarative definition leaves the ID empty.
func deriveID(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ".")
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

func slug(s string) string {
	return slugStrip.ReplaceAllString(strings.ToLower(s), "")
}

func defaultString(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func toAnyList(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
