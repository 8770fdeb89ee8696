// Package assert provides the small assertion helpers used throughout
// this module's test files.
package assert

import (
	"reflect"
	"regexp"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hauke96/sigolo/v2"
)

func Equal(t *testing.T, expected, actual any) {
	t.Helper()
	if !reflect.DeepEqual(expected, actual) {
		sigolo.Errorb(1, "Expect to be equal.\nExpected: %+v\nActual  : %+v\nDiff    : %s", expected, actual, cmp.Diff(expected, actual))
		t.Fail()
	}
}

// DeepEqual is like Equal but prints a structural diff via go-cmp; prefer it
// for round-trip assertions on larger structs (TypeInfo, FeatureValueBuffer)
// where a flat %+v dump is hard to read.
func DeepEqual(t *testing.T, expected, actual any, opts ...cmp.Option) {
	t.Helper()
	if diff := cmp.Diff(expected, actual, opts...); diff != "" {
		sigolo.Errorb(1, "Expect to be equal (-expected +actual):\n%s", diff)
		t.Fail()
	}
}

func True(t *testing.T, b bool) {
	t.Helper()
	if !b {
		sigolo.Errorb(1, "Expected true but got false")
		t.Fail()
	}
}

func False(t *testing.T, b bool) {
	t.Helper()
	if b {
		sigolo.Errorb(1, "Expected false but got true")
		t.Fail()
	}
}

func Nil(t *testing.T, value any) {
	t.Helper()
	if value != nil && !(reflect.ValueOf(value).Kind() == reflect.Ptr && reflect.ValueOf(value).IsNil()) {
		sigolo.Errorb(1, "Expect 'nil' but was: %#v", value)
		t.Fail()
	}
}

func NoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		sigolo.Errorb(1, "Expected no error but got: %+v", err)
		t.Fail()
	}
}

func Error(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		sigolo.Errorb(1, "Expected an error but got nil")
		t.Fail()
	}
}

func ErrorMatches(t *testing.T, regexString string, err error) {
	t.Helper()
	if err == nil {
		sigolo.Errorb(1, "Expected an error matching %q but got nil", regexString)
		t.Fail()
		return
	}
	regex := regexp.MustCompile(regexString)
	if !regex.MatchString(err.Error()) {
		sigolo.Errorb(1, "Expected error matching %q but got: %s", regexString, err.Error())
		t.Fail()
	}
}
