// Profiling:
// go build ./cmd/depotprof
// ./depotprof -mode=mem
// go tool pprof -http=":8000" -nodefraction=0.001 ./depotprof mem.pprof

package main

import (
	"flag"
	"log"

	"github.com/TheBitDrifter/depot"
	"github.com/pkg/profile"
)

type comp1 struct {
	V int64
	W int64
}

type comp2 struct {
	V int64
	W int64
}

type tag struct{}

func main() {
	mode := flag.String("mode", "mem", "profile to record: mem or cpu")
	rounds := flag.Int("rounds", 50, "worlds to build")
	iters := flag.Int("iters", 1000, "spawn/iterate/despawn cycles per world")
	entities := flag.Int("entities", 1000, "entities spawned per cycle")
	flag.Parse()

	var p interface{ Stop() }
	switch *mode {
	case "mem":
		p = profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook)
	case "cpu":
		p = profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	default:
		log.Fatalf("unknown profile mode %q", *mode)
	}
	if err := run(*rounds, *iters, *entities); err != nil {
		log.Fatal(err)
	}
	p.Stop()
}

func run(rounds, iters, numEntities int) error {
	c1 := depot.FactoryNewComponent[comp1]()
	c2 := depot.FactoryNewComponent[comp2]()
	marker := depot.FactoryNewComponent[tag](depot.WithStorage(depot.StorageSparseSet))

	for range rounds {
		w := depot.Factory.NewWorld()
		state, err := depot.Factory.NewQuery().
			Fetch(depot.Write(c1), depot.Read(c2)).
			Build(w)
		if err != nil {
			return err
		}

		for range iters {
			spawned, err := w.SpawnBatch(numEntities, c1, c2.Value(comp2{V: 1, W: 2}))
			if err != nil {
				return err
			}
			cursor := state.Cursor()
			for cursor.Next() {
				a := c1.GetFromCursor(cursor)
				b := c2.ReadFromCursor(cursor)
				a.V += b.V
				a.W += b.W
			}
			for i, e := range spawned {
				if i%2 == 0 {
					if err := w.Insert(e, marker); err != nil {
						return err
					}
				}
			}
			for _, e := range spawned {
				if err := w.Despawn(e); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
