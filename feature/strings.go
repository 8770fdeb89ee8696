package feature

import (
	"osmscout/fileio"
)

// StringValue is the shared payload of every plain string-valued feature
// (Name, Ref, Address, Location, ...): a single UTF-8 string, no parsing
// beyond "the tag exists and is non-empty".
type StringValue struct {
	Text string
}

func (v *StringValue) Write(w *fileio.Writer) error { return w.WriteString(v.Text) }
func (v *StringValue) Read(s *fileio.Scanner) error {
	t, err := s.ReadString()
	v.Text = t
	return err
}
func (v *StringValue) Label(name string) (string, bool) {
	return v.Text, true
}

// stringFeature is a data-driven Feature for tag-key -> string features
// that need no special parsing rules.
type stringFeature struct {
	baseFeature
	tagKey string
}

func (f *stringFeature) AllocateValue() Value { return &StringValue{} }

func (f *stringFeature) Parse(reporter ErrorReporter, osmRef string, tags TagMap) (Value, bool) {
	v, ok := tags[f.tagKey]
	if !ok || v == "" {
		return nil, false
	}
	return &StringValue{Text: v}, true
}

func newStringFeature(name, tagKey string) *stringFeature {
	return &stringFeature{
		baseFeature: baseFeature{name: name, valueSize: 0, labels: []string{name}},
		tagKey:      tagKey,
	}
}

func NewNameFeature() Feature          { return newStringFeature("Name", "name") }
func NewNameAltFeature() Feature       { return newStringFeature("NameAlt", "alt_name") }
func NewNameShortFeature() Feature     { return newStringFeature("NameShort", "short_name") }
func NewRefFeature() Feature           { return newStringFeature("Ref", "ref") }
func NewAddressFeature() Feature       { return newStringFeature("Address", "addr:housenumber") }
func NewLocationFeature() Feature      { return newStringFeature("Location", "addr:street") }
func NewPostalCodeFeature() Feature    { return newStringFeature("PostalCode", "addr:postcode") }
func NewDestinationFeature() Feature   { return newStringFeature("Destination", "destination") }
func NewBrandFeature() Feature         { return newStringFeature("Brand", "brand") }
func NewOperatorFeature() Feature      { return newStringFeature("Operator", "operator") }
func NewNetworkFeature() Feature       { return newStringFeature("Network", "network") }
func NewPhoneFeature() Feature         { return newStringFeature("Phone", "phone") }
func NewWebsiteFeature() Feature       { return newStringFeature("Website", "website") }
func NewOpeningHoursFeature() Feature  { return newStringFeature("OpeningHours", "opening_hours") }
func NewFromFeature() Feature          { return newStringFeature("From", "from") }
func NewToFeature() Feature            { return newStringFeature("To", "to") }
