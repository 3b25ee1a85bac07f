// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package unwrap

import (
	"errors"
	"strconv"
	"testing"

	"go.astrophena.name/addheader/testutil"
)

var errBroken = errors.New("broken")

func recovered(f func()) (r any) {
	defer func() { r = recover() }()
	f()
	return nil
}

func TestValue(t *testing.T) {
	testutil.AssertEqual(t, Value(strconv.Atoi("42")), 42)

	r := recovered(func() { Value(strconv.Atoi("forty-two")) })
	err, ok := r.(error)
	if !ok {
		t.Fatalf("Value must panic with an error, got %v", r)
	}
	var numErr *strconv.NumError
	if !errors.As(err, &numErr) {
		t.Errorf("panic value %v must wrap the original error", err)
	}
}

func TestNoError(t *testing.T) {
	if r := recovered(func() { NoError(nil) }); r != nil {
		t.Fatalf("NoError(nil) panicked: %v", r)
	}

	r := recovered(func() { NoError(errBroken) })
	err, ok := r.(error)
	if !ok || !errors.Is(err, errBroken) {
		t.Fatalf("NoError must panic with the wrapped error, got %v", r)
	}
	testutil.AssertEqual(t, err.Error(), "unwrap: broken")
}
