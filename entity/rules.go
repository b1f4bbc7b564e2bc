package entity

import (
	"fmt"

	"github.com/surfdeck/surfdeck/errors"
)

// Schema version bounds. A descriptor declares the version it targets; only
// rules with MinVersion at or below that version apply.
const (
	MinSchemaVersion     = 1
	MaxSchemaVersion     = 6
	DefaultSchemaVersion = 6
)

// Rule describes one attribute of an entity kind: the schema version that
// introduced it, whether it is required, its container type, an optional
// generation default, an optional closed value list, and the child kind for
// nested list/object attributes.
type Rule struct {
	MinVersion int
	Required   bool
	Type       AttrType
	Default    any
	Choices    []any
	Nested     Kind
}

// Applicable reports whether the rule exists at the given schema version.
func (r Rule) Applicable(version int) bool {
	return version >= r.MinVersion
}

// InChoices reports whether a value is a member of the rule's closed value
// list. Rules without a value list accept anything.
func (r Rule) InChoices(value any) bool {
	if len(r.Choices) == 0 {
		return true
	}
	for _, c := range r.Choices {
		if valueEqual(c, value) {
			return true
		}
	}
	return false
}

func valueEqual(a, b any) bool {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return af == bf
	}
	return a == b
}

// RuleTable maps attribute names to their rules for one entity kind.
type RuleTable map[string]Rule

// Static, versioned attribute tables. Loaded once; nothing mutates them at
// runtime.
var ruleTables = map[Kind]RuleTable{
	KindRoot: {
		"sdk":                       {MinVersion: 1, Required: true, Type: TypeInt, Default: DefaultSchemaVersion, Choices: []any{1, 2, 3, 4, 5, 6}},
		"version":                   {MinVersion: 1, Required: true, Type: TypeInt, Default: 1},
		"name":                      {MinVersion: 1, Required: true, Type: TypeString},
		"id":                        {MinVersion: 1, Required: true, Type: TypeString},
		"configuration":             {MinVersion: 1, Type: TypeObject, Nested: KindConfiguration},
		"plugin_start_cmd":          {MinVersion: 1, Type: TypeString},
		"plugin_start_cmd_windows":  {MinVersion: 4, Type: TypeString},
		"plugin_start_cmd_linux":    {MinVersion: 4, Type: TypeString},
		"plugin_start_cmd_mac":      {MinVersion: 4, Type: TypeString},
		"categories":                {MinVersion: 1, Required: true, Type: TypeList, Default: []any{}, Nested: KindCategory},
		"settings":                  {MinVersion: 3, Type: TypeList, Default: []any{}, Nested: KindSetting},
	},
	KindConfiguration: {
		"colorDark":  {MinVersion: 1, Type: TypeString},
		"colorLight": {MinVersion: 1, Type: TypeString},
	},
	KindCategory: {
		"id":         {MinVersion: 1, Required: true, Type: TypeString},
		"name":       {MinVersion: 1, Required: true, Type: TypeString},
		"imagepath":  {MinVersion: 1, Type: TypeString},
		"actions":    {MinVersion: 1, Type: TypeList, Nested: KindAction},
		"connectors": {MinVersion: 4, Type: TypeList, Nested: KindConnector},
		"states":     {MinVersion: 1, Type: TypeList, Nested: KindState},
		"events":     {MinVersion: 1, Type: TypeList, Nested: KindEvent},
	},
	KindAction: {
		"id":                   {MinVersion: 1, Required: true, Type: TypeString},
		"name":                 {MinVersion: 1, Required: true, Type: TypeString},
		"prefix":               {MinVersion: 1, Required: true, Type: TypeString},
		"type":                 {MinVersion: 1, Required: true, Type: TypeString, Default: "communicate", Choices: []any{"communicate", "execute"}},
		"description":          {MinVersion: 1, Type: TypeString},
		"format":               {MinVersion: 1, Type: TypeString},
		"executionType":        {MinVersion: 1, Type: TypeString},
		"execution_cmd":        {MinVersion: 1, Type: TypeString},
		"tryInline":            {MinVersion: 1, Type: TypeBool},
		"hasHoldFunctionality": {MinVersion: 3, Type: TypeBool},
		"data":                 {MinVersion: 1, Type: TypeList, Nested: KindActionData},
	},
	KindActionData: {
		"id":            {MinVersion: 1, Required: true, Type: TypeString},
		"type":          {MinVersion: 1, Required: true, Type: TypeString, Default: "text", Choices: []any{"text", "number", "switch", "choice", "file", "folder", "color"}},
		"label":         {MinVersion: 1, Required: true, Type: TypeString},
		"default":       {MinVersion: 1, Required: true, Type: TypeScalar, Default: ""},
		"valueChoices":  {MinVersion: 1, Type: TypeList},
		"extensions":    {MinVersion: 2, Type: TypeList},
		"allowDecimals": {MinVersion: 2, Type: TypeBool},
		"minValue":      {MinVersion: 3, Type: TypeInt},
		"maxValue":      {MinVersion: 3, Type: TypeInt},
	},
	KindState: {
		"id":           {MinVersion: 1, Required: true, Type: TypeString},
		"type":         {MinVersion: 1, Required: true, Type: TypeString, Default: "text", Choices: []any{"text", "choice"}},
		"desc":         {MinVersion: 1, Required: true, Type: TypeString},
		"default":      {MinVersion: 1, Required: true, Type: TypeString, Default: ""},
		"parentGroup":  {MinVersion: 6, Type: TypeString},
		"valueChoices": {MinVersion: 1, Type: TypeList},
	},
	KindEvent: {
		"id":           {MinVersion: 1, Required: true, Type: TypeString},
		"name":         {MinVersion: 1, Required: true, Type: TypeString},
		"format":       {MinVersion: 1, Required: true, Type: TypeString},
		"type":         {MinVersion: 1, Required: true, Type: TypeString, Default: "communicate", Choices: []any{"communicate"}},
		"valueChoices": {MinVersion: 1, Required: true, Type: TypeList, Default: []any{}},
		"valueType":    {MinVersion: 1, Required: true, Type: TypeString, Default: "choice", Choices: []any{"choice"}},
		"valueStateId": {MinVersion: 1, Required: true, Type: TypeString},
	},
	KindConnector: {
		"id":     {MinVersion: 4, Required: true, Type: TypeString},
		"name":   {MinVersion: 4, Required: true, Type: TypeString},
		"format": {MinVersion: 4, Type: TypeString},
		"data":   {MinVersion: 4, Type: TypeList, Nested: KindActionData},
	},
	KindSetting: {
		"name":       {MinVersion: 3, Required: true, Type: TypeString},
		"type":       {MinVersion: 3, Required: true, Type: TypeString, Default: "text", Choices: []any{"text", "number"}},
		"default":    {MinVersion: 3, Type: TypeString},
		"maxLength":  {MinVersion: 3, Type: TypeInt},
		"isPassword": {MinVersion: 3, Type: TypeBool},
		"minValue":   {MinVersion: 3, Type: TypeInt},
		"maxValue":   {MinVersion: 3, Type: TypeInt},
		"readOnly":   {MinVersion: 3, Type: TypeBool, Default: false},
	},
}

// RulesFor returns the attribute rule table for a kind. Unknown kinds fail
// closed with an error rather than an empty table.
func RulesFor(kind Kind) (RuleTable, error) {
	table, ok := ruleTables[kind]
	if !ok {
		return nil, errors.WrapUsage(
			fmt.Errorf("%w: %q", errors.ErrUnknownKind, kind),
			"entity", "RulesFor", "rule table lookup")
	}
	return table, nil
}

// Lookup returns the rule for one attribute of a kind at a schema version.
// Unknown attributes and attributes introduced after the target version are
// both rejected.
func Lookup(kind Kind, attribute string, version int) (Rule, error) {
	table, err := RulesFor(kind)
	if err != nil {
		return Rule{}, err
	}
	rule, ok := table[attribute]
	if !ok {
		return Rule{}, errors.WrapUsage(
			fmt.Errorf("unknown attribute %q for kind %q", attribute, kind),
			"entity", "Lookup", "attribute lookup")
	}
	if !rule.Applicable(version) {
		return Rule{}, errors.WrapUsage(
			fmt.Errorf("attribute %q of kind %q requires schema version %d, document targets %d",
				attribute, kind, rule.MinVersion, version),
			"entity", "Lookup", "version check")
	}
	return rule, nil
}

// IdentityAttribute returns the attribute holding a kind's unique identifier.
// Settings are identified by name; every other kind uses id. The root and
// configuration objects do not participate in the uniqueness check (the root
// "id" is the plugin namespace, not an entity identifier).
func IdentityAttribute(kind Kind) (string, bool) {
	switch kind {
	case KindCategory, KindAction, KindActionData, KindState, KindEvent, KindConnector:
		return "id", true
	case KindSetting:
		return "name", true
	default:
		return "", false
	}
}
