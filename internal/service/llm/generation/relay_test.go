package generation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"diagramgen/internal/domain/models"
)

func collect(t *testing.T, ch <-chan models.GenerationEvent) []models.GenerationEvent {
	t.Helper()
	var events []models.GenerationEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("stream did not finish")
		}
	}
}

func types(events []models.GenerationEvent) string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return strings.Join(out, ",")
}

func split(s string, n int) []string {
	var out []string
	for len(s) > n {
		out = append(out, s[:n])
		s = s[n:]
	}
	return append(out, s)
}

func TestStreamFailoverSequence(t *testing.T) {
	exec, _ := setup(t,
		provider{name: "skipped", priority: 0, client: &fakeClient{fragments: []string{validXML}}},
		provider{name: "broken", priority: 1, client: &fakeClient{err: transportErr("broken")}},
		provider{name: "good", priority: 2, client: &fakeClient{fragments: append([]string{""}, split(validXML, 40)...)}},
	)

	events := collect(t, exec.Stream(context.Background(), request("x", "skipped")))

	contentCount := len(split(validXML, 40))
	want := "skip,start,error,start" + strings.Repeat(",content", contentCount) + ",complete"
	if got := types(events); got != want {
		t.Fatalf("events = %s\nwant     %s", got, want)
	}
	if events[0].Provider != "skipped" || events[1].Provider != "broken" || events[3].Provider != "good" {
		t.Errorf("provider attribution wrong: %+v", events[:4])
	}
	if !strings.Contains(events[2].Message, "broken") {
		t.Errorf("error message = %q", events[2].Message)
	}

	var relayed strings.Builder
	for _, ev := range events {
		if ev.Type == models.EventContent {
			relayed.WriteString(ev.Fragment)
		}
	}
	if relayed.String() != validXML {
		t.Errorf("fragments do not reassemble the document")
	}

	final := events[len(events)-1]
	if final.Document != validXML || final.ProviderUsed != "good" || len(final.History) != 2 {
		t.Errorf("complete event = %+v", final)
	}
}

func TestStreamValidationFailureIsTerminal(t *testing.T) {
	second := &fakeClient{fragments: []string{validXML}}
	exec, _ := setup(t,
		provider{name: "first", priority: 0, client: &fakeClient{fragments: []string{"<mxGraphModel>", "<root/></mxGraphModel>"}}},
		provider{name: "second", priority: 1, client: second},
	)

	events := collect(t, exec.Stream(context.Background(), request("x")))

	if got := types(events); got != "start,content,content,validation_failed" {
		t.Fatalf("events = %s", got)
	}
	final := events[len(events)-1]
	if final.Reason != "missing graphical elements" || final.Message != "validation failed: missing graphical elements" {
		t.Errorf("validation_failed event = %+v", final)
	}
	if len(second.requests) != 0 {
		t.Error("second provider must not be called")
	}
}

func TestStreamEmptyPolicies(t *testing.T) {
	t.Run("no choice-bearing chunks advances", func(t *testing.T) {
		exec, _ := setup(t,
			provider{name: "silent", priority: 0, client: &fakeClient{noChoices: true}},
			provider{name: "good", priority: 1, client: &fakeClient{fragments: []string{validXML}}},
		)
		events := collect(t, exec.Stream(context.Background(), request("x")))
		if got := types(events); got != "start,error,start,content,complete" {
			t.Fatalf("events = %s", got)
		}
	})

	t.Run("choices with empty text are validation failures", func(t *testing.T) {
		exec, _ := setup(t,
			provider{name: "blank", priority: 0, client: &fakeClient{fragments: []string{"", " "}}},
			provider{name: "good", priority: 1, client: &fakeClient{fragments: []string{validXML}}},
		)
		events := collect(t, exec.Stream(context.Background(), request("x")))
		if got := types(events); got != "start,content,validation_failed" {
			t.Fatalf("events = %s", got)
		}
		if events[len(events)-1].Reason != "empty content" {
			t.Errorf("reason = %q", events[len(events)-1].Reason)
		}
	})
}

func TestStreamMidStreamErrorAdvances(t *testing.T) {
	exec, _ := setup(t,
		provider{name: "flaky", priority: 0, client: &fakeClient{fragments: []string{"<mxfile>"}, streamErr: errors.New("connection reset")}},
		provider{name: "good", priority: 1, client: &fakeClient{fragments: []string{validXML}}},
	)

	events := collect(t, exec.Stream(context.Background(), request("x")))
	if got := types(events); got != "start,content,error,start,content,complete" {
		t.Fatalf("events = %s", got)
	}
}

func TestStreamExhausted(t *testing.T) {
	exec, _ := setup(t,
		provider{name: "A", priority: 0, client: &fakeClient{err: transportErr("A")}},
	)

	events := collect(t, exec.Stream(context.Background(), request("x")))
	if got := types(events); got != "start,error,failed" {
		t.Fatalf("events = %s", got)
	}
	if msg := events[2].Message; !strings.HasPrefix(msg, "all providers failed: A:") {
		t.Errorf("failed message = %q", msg)
	}

	events = collect(t, exec.Stream(context.Background(), request("x", "A")))
	if got := types(events); got != "skip,failed" {
		t.Fatalf("events = %s", got)
	}
	if events[1].Message != "all providers failed: "+noProvidersAvailable || events[1].LastError != noProvidersAvailable {
		t.Errorf("failed event = %+v", events[1])
	}
}

func TestStreamExactlyOneTerminalEvent(t *testing.T) {
	scenarios := map[string]*fakeClient{
		"complete": {fragments: []string{validXML}},
		"invalid":  {fragments: []string{"nope"}},
		"failed":   {err: transportErr("p")},
	}
	for name, client := range scenarios {
		t.Run(name, func(t *testing.T) {
			exec, _ := setup(t, provider{name: "p", priority: 0, client: client})
			events := collect(t, exec.Stream(context.Background(), request("x")))
			terminals := 0
			for _, ev := range events {
				if ev.IsTerminal() {
					terminals++
				}
			}
			if terminals != 1 || !events[len(events)-1].IsTerminal() {
				t.Errorf("events = %s", types(events))
			}
		})
	}
}

func TestStreamCancellationClosesProviderStream(t *testing.T) {
	client := &fakeClient{fragments: []string{"<mxfile>", "<diagram>", "</diagram>", "</mxfile>"}}
	exec, _ := setup(t, provider{name: "A", priority: 0, client: client})

	ctx, cancel := context.WithCancel(context.Background())
	ch := exec.Stream(ctx, request("x"))

	if ev := <-ch; ev.Type != models.EventStart {
		t.Fatalf("first event = %s", ev.Type)
	}
	if ev := <-ch; ev.Type != models.EventContent {
		t.Fatalf("second event = %s", ev.Type)
	}
	cancel()

	// Drain; the producer must close the channel without a terminal event
	for ev := range ch {
		if ev.IsTerminal() {
			t.Errorf("unexpected terminal event after cancel: %s", ev.Type)
		}
	}

	client.mu.Lock()
	closed := client.closed
	client.mu.Unlock()
	if !closed {
		t.Error("provider stream was not closed")
	}
}
