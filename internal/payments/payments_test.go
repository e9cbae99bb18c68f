package payments

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/littlemirai-storefront/pkg/errors"
)

func TestDispatcherDeliversExactlyOnce(t *testing.T) {
	d := NewDispatcher()
	ch := d.Register("order_1")
	d.Bind("cs_test_1", "order_1")

	if !d.ResolveRef("cs_test_1", Succeeded("", "pi_1", "sig")) {
		t.Fatal("expected first resolution to be delivered")
	}
	if d.Resolve("order_1", Failed("order_1", "late")) {
		t.Fatal("duplicate resolution must be rejected")
	}
	if d.ResolveRef("cs_test_1", Dismissed("order_1")) {
		t.Fatal("reference should be dropped after delivery")
	}

	got := <-ch
	if got.Outcome != OutcomeSucceeded || got.OrderID != "order_1" || got.PaymentID != "pi_1" {
		t.Fatalf("unexpected result %+v", got)
	}
	if d.Pending() != 0 {
		t.Fatalf("expected no pending attempts, got %d", d.Pending())
	}
}

func TestDispatcherForgetDropsLateResults(t *testing.T) {
	d := NewDispatcher()
	d.Register("order_2")
	d.Bind("ref_2", "order_2")
	if orderID, ok := d.OrderFor("ref_2"); !ok || orderID != "order_2" {
		t.Fatalf("expected binding, got %q %v", orderID, ok)
	}

	d.Forget("order_2")
	if d.Resolve("order_2", Dismissed("order_2")) {
		t.Fatal("forgotten order must not accept results")
	}
	if _, ok := d.OrderFor("ref_2"); ok {
		t.Fatal("forget should drop references")
	}
}

func TestDispatcherConcurrentResolveSingleWinner(t *testing.T) {
	d := NewDispatcher()
	ch := d.Register("order_3")

	var delivered atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if d.Resolve("order_3", Dismissed("order_3")) {
				delivered.Add(1)
			}
		}()
	}
	wg.Wait()
	if delivered.Load() != 1 {
		t.Fatalf("expected one delivery, got %d", delivered.Load())
	}
	<-ch
}

func TestLoaderFlipsReadyAfterRetry(t *testing.T) {
	var calls atomic.Int32
	loader := NewLoader("stub", func(context.Context) error {
		if calls.Add(1) < 3 {
			return errors.New("not yet")
		}
		return nil
	}, LoaderOptions{BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}, nil)

	if loader.Ready() {
		t.Fatal("loader should not be ready before start")
	}
	loader.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if !loader.Wait(ctx) {
		t.Fatal("expected loader to become ready")
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 warm-up calls, got %d", calls.Load())
	}
}

func TestLoaderStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	loader := NewLoader("stub", func(context.Context) error {
		return errors.New("down")
	}, LoaderOptions{BaseDelay: time.Millisecond}, nil)
	loader.Start(ctx)
	cancel()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()
	if loader.Wait(waitCtx) {
		t.Fatal("loader must not report ready after cancellation")
	}
}

func TestUUIDIssuerPrefix(t *testing.T) {
	id, err := UUIDIssuer{}.IssueOrderID(context.Background())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !strings.HasPrefix(id, "order_") || len(id) != len("order_")+36 {
		t.Fatalf("unexpected order id %q", id)
	}
}

func TestPlaceholderCredentials(t *testing.T) {
	for _, value := range []string{"", "  ", "rzp_test_your_key_here", "sk_test_REPLACE_ME"} {
		if !IsPlaceholder(value) {
			t.Fatalf("%q should be treated as a placeholder", value)
		}
	}
	if IsPlaceholder("sk_test_51Habc") {
		t.Fatal("real looking key flagged as placeholder")
	}
	if pkgerrors.CodeOf(RequireCredential("stripe api key", "")) != pkgerrors.CodeConfiguration {
		t.Fatal("expected configuration error")
	}
}

func TestUnconfiguredGateway(t *testing.T) {
	gw := NewUnconfigured("stripe", nil)
	if gw.Ready() {
		t.Fatal("unconfigured gateway is never ready")
	}
	if pkgerrors.CodeOf(gw.Configured()) != pkgerrors.CodeConfiguration {
		t.Fatalf("unexpected configured error %v", gw.Configured())
	}
	if _, err := gw.Open(context.Background(), Request{}); err == nil {
		t.Fatal("open must fail")
	}
}
