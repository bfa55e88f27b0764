package main

import (
	"fmt"
	"strconv"

	"github.com/goccy/go-yaml"

	"github.com/tus-lockers/locker-backend/internal/validate"
)

// block describes a contiguous run of lockers on one floor, e.g.
// {floor: 2, location: 2F east, from: 2001, to: 2060, out_of_work: [2013]}.
type block struct {
	Floor     int    `yaml:"floor"`
	Location  string `yaml:"location"`
	From      int    `yaml:"from"`
	To        int    `yaml:"to"`
	OutOfWork []int  `yaml:"out_of_work"`
}

type lockerRow struct {
	LockerID string
	Location string
	Status   string
}

func parseInventory(raw []byte) ([]block, error) {
	var blocks []block
	if err := yaml.Unmarshal(raw, &blocks); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("no locker blocks")
	}
	return blocks, nil
}

// expand turns blocks into rows. Ids are four digits with the floor as the
// leading digit, and no id may appear twice.
func expand(blocks []block) ([]lockerRow, error) {
	seen := map[string]struct{}{}
	var out []lockerRow
	for i, b := range blocks {
		if b.Floor < validate.MinFloor || b.Floor > validate.MaxFloor {
			return nil, fmt.Errorf("block %d: floor %d outside %d-%d", i+1, b.Floor, validate.MinFloor, validate.MaxFloor)
		}
		lo, hi := b.Floor*1000, b.Floor*1000+999
		if b.From < lo || b.To > hi || b.From > b.To {
			return nil, fmt.Errorf("block %d: range %d-%d does not fit floor %d", i+1, b.From, b.To, b.Floor)
		}
		broken := map[int]bool{}
		for _, id := range b.OutOfWork {
			if id < b.From || id > b.To {
				return nil, fmt.Errorf("block %d: out_of_work locker %d outside %d-%d", i+1, id, b.From, b.To)
			}
			broken[id] = true
		}
		for id := b.From; id <= b.To; id++ {
			key := strconv.Itoa(id)
			if _, dup := seen[key]; dup {
				return nil, fmt.Errorf("block %d: locker %s listed twice", i+1, key)
			}
			seen[key] = struct{}{}
			status := "vacant"
			if broken[id] {
				status = "out-of-work"
			}
			out = append(out, lockerRow{LockerID: key, Location: b.Location, Status: status})
		}
	}
	return out, nil
}
