package engine

import (
	"context"
	"testing"
)

func DoCheckError(t testing.TB, d Doer, ctx context.Context) {
	t.Helper()
	err := d.Do(ctx)
	if err != nil {
		t.Errorf("d=%s err=%v", d.String(), err)
	}
}
func DoCheckFatal(t testing.TB, d Doer, ctx context.Context) {
	t.Helper()
	if err := d.Do(ctx); err != nil {
		t.Fatalf("d=%s err=%v", d.String(), err)
	}
}
