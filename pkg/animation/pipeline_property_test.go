package animation

import (
	"context"
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Feature: animation-pipeline, Property 1: 実行順序
func TestProperty1_DrainOrder(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("steps are consumed once each in FIFO order", prop.ForAll(
		func(ids []int) bool {
			p := NewPipeline(WithSpeed(0))
			var got []int
			for _, id := range ids {
				id := id
				p.Enqueue(StepFunc(func(ctx context.Context, c *Clock) error {
					got = append(got, id)
					return nil
				}))
			}

			if err := p.AwaitDrain(context.Background()); err != nil {
				return false
			}
			if len(got) != len(ids) || p.Len() != 0 {
				return false
			}
			for i := range ids {
				if got[i] != ids[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Int()),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Feature: animation-pipeline, Property 2: スレッドセーフ性
func TestProperty2_ConcurrentEnqueue(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("concurrent Enqueue loses no step", prop.ForAll(
		func(workers, perWorker int) bool {
			p := NewPipeline(WithSpeed(0))
			var wg sync.WaitGroup
			var mu sync.Mutex
			ran := 0
			for w := 0; w < workers; w++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < perWorker; i++ {
						p.Enqueue(StepFunc(func(ctx context.Context, c *Clock) error {
							mu.Lock()
							ran++
							mu.Unlock()
							return nil
						}))
					}
				}()
			}
			wg.Wait()

			if p.Len() != workers*perWorker {
				return false
			}
			if err := p.AwaitDrain(context.Background()); err != nil {
				return false
			}
			return ran == workers*perWorker
		},
		gen.IntRange(1, 8),
		gen.IntRange(0, 50),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Feature: animation-pipeline, Property 3: 速度の範囲
func TestProperty3_SpeedClamped(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("speed always stays within 0..100", prop.ForAll(
		func(speed int) bool {
			p := NewPipeline()
			p.SetSpeed(speed)
			s := p.Speed()
			return s >= MinSpeed && s <= MaxSpeed
		},
		gen.Int(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
