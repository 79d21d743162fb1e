package metrics

import (
    "testing"
    "time"

    "github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
    Init()
    Init()

    before := testutil.ToFloat64(selections.WithLabelValues("added"))
    IncSelection("added")
    if got := testutil.ToFloat64(selections.WithLabelValues("added")); got != before+1 {
        t.Fatalf("selections added = %v, want %v", got, before+1)
    }

    pagesBefore := testutil.ToFloat64(pagesMerged)
    AddPagesMerged(3)
    if got := testutil.ToFloat64(pagesMerged); got != pagesBefore+3 {
        t.Fatalf("pages merged = %v, want %v", got, pagesBefore+3)
    }

    IncMerge("success")
    ObserveRender("ok", 15*time.Millisecond)
    if n := testutil.CollectAndCount(renderLatency); n == 0 {
        t.Fatal("render histogram has no series")
    }
}

func TestServeDisabled(t *testing.T) {
    if srv := Serve(""); srv != nil {
        t.Fatal("empty addr should not start a listener")
    }
}
