package element_test

import (
	"context"
	"encoding/json"
	"testing"

	"pgregory.net/rapid"

	"github.com/vango-dev/elements/pkg/element"
	"github.com/vango-dev/elements/pkg/element/elementtest"
)

type step func(ctx context.Context, eng *element.Engine) error

func registrationSteps() []step {
	return []step{
		func(ctx context.Context, eng *element.Engine) error {
			return eng.Define(ctx, "base-widget", &element.Definition{Members: element.Members{
				"greet": "base", "size": 1,
			}})
		},
		func(ctx context.Context, eng *element.Engine) error {
			_, err := eng.RequestRegistration(ctx, element.Declaration{
				Name:    "base-widget",
				Extends: "button",
				Publish: map[string]any{"label": ""},
			})
			return err
		},
		func(ctx context.Context, eng *element.Engine) error {
			return eng.Define(ctx, "fancy-widget", &element.Definition{Members: element.Members{
				"greet": "fancy",
			}})
		},
		func(ctx context.Context, eng *element.Engine) error {
			_, err := eng.RequestRegistration(ctx, element.Declaration{
				Name:    "fancy-widget",
				Extends: "base-widget",
				Events:  map[string]string{"click": "greet"},
			})
			return err
		},
	}
}

func fingerprint(t *rapid.T, eng *element.Engine, name string) string {
	p, ok := eng.Registered(name)
	if !ok {
		t.Fatalf("%s not registered", name)
	}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestProperty_OrderIndependence(t *testing.T) {
	steps := registrationSteps()

	ref := element.New(elementtest.NewPlatform("button"))
	for _, s := range steps {
		if err := s(context.Background(), ref); err != nil {
			t.Fatal(err)
		}
	}
	refPrint, err := json.Marshal(mustRegistered(t, ref, "fancy-widget"))
	if err != nil {
		t.Fatal(err)
	}

	rapid.Check(t, func(t *rapid.T) {
		order := rapid.Permutation([]int{0, 1, 2, 3}).Draw(t, "order")
		eng := element.New(elementtest.NewPlatform("button"))
		for _, i := range order {
			if err := steps[i](context.Background(), eng); err != nil {
				t.Fatalf("step %d: %v", i, err)
			}
		}
		if got := fingerprint(t, eng, "fancy-widget"); got != string(refPrint) {
			t.Fatalf("order %v composed\n%s\nwant\n%s", order, got, refPrint)
		}
	})
}

func mustRegistered(t *testing.T, eng *element.Engine, name string) *element.Prototype {
	t.Helper()
	p, ok := eng.Registered(name)
	if !ok {
		t.Fatalf("%s not registered", name)
	}
	return p
}

func TestProperty_SingleResolution(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(t, "waiters")
		lossy := rapid.Bool().Draw(t, "lossy")

		rec := &elementtest.Recorder{}
		eng := element.New(elementtest.NewPlatform(),
			element.WithObserver(rec),
			element.WithLossyDefinitionWait(lossy))

		ids := make([]string, n)
		for i := range n {
			h, err := eng.RequestRegistration(context.Background(), element.Declaration{Name: "x-many"})
			if err != nil {
				t.Fatal(err)
			}
			ids[i] = h.ID()
		}
		_ = eng.Define(context.Background(), "x-many", nil)

		resumed := make(map[string]int)
		for _, ev := range rec.Events() {
			if ev.Kind == element.EventResumed {
				resumed[ev.RequestID]++
			}
		}
		for i, id := range ids {
			want := 1
			if lossy && i < n-1 {
				want = 0
			}
			if resumed[id] != want {
				t.Fatalf("request %d resumed %d times, want %d", i, resumed[id], want)
			}
		}
		if _, ok := eng.Registered("x-many"); !ok {
			t.Fatal("x-many not registered")
		}
	})
}
