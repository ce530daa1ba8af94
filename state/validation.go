package state

import (
	"fmt"
	"math"
	"net/netip"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var idPattern = regexp.MustCompile(`^(?:(?:[01]?\d{1,2}|2(?:[0-4]\d|5[0-5]))\.){3}(?:[01]?\d{1,2}|2(?:[0-4]\d|5[0-5]))$`)

func PathValidator(s string) error {
	_, err := os.Stat(path.Dir(s))
	if err != nil {
		return err
	}
	_, err = filepath.Abs(s)
	return err
}

// IdValidator accepts dotted quad router ids, such as 10.0.0.1. Leading zeros are allowed.
func IdValidator(s string) error {
	if !idPattern.MatchString(s) {
		return fmt.Errorf("%w: %q is not a dotted quad address", ErrInvalidId, s)
	}
	return nil
}

// IdAddr converts a router id into an IPv4 address, ignoring leading zeros in each octet.
func IdAddr(id RouterId) (netip.Addr, bool) {
	if !idPattern.MatchString(string(id)) {
		return netip.Addr{}, false
	}
	var octets [4]byte
	for i, part := range strings.Split(string(id), ".") {
		v, err := strconv.ParseUint(part, 10, 8)
		if err != nil {
			return netip.Addr{}, false
		}
		octets[i] = byte(v)
	}
	return netip.AddrFrom4(octets), true
}

func WeightValidator(w Metric) error {
	if math.IsNaN(float64(w)) || math.IsInf(float64(w), 0) || w < 0 {
		return fmt.Errorf("%w: %v, must be finite and non-negative", ErrInvalidWeight, float64(w))
	}
	return nil
}

// ParseWeight parses a distance typed by an operator
func ParseWeight(s string) (Metric, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidWeight, s)
	}
	w := Metric(v)
	return w, WeightValidator(w)
}

func ScenarioValidator(cfg *ScenarioCfg) error {
	known := make(map[RouterId]bool)
	for _, r := range cfg.Routers {
		if err := IdValidator(string(r)); err != nil {
			return err
		}
		if known[r] {
			return fmt.Errorf("%w: %s", ErrDuplicateId, r)
		}
		known[r] = true
	}
	if cfg.DefaultWeight != nil {
		if err := WeightValidator(*cfg.DefaultWeight); err != nil {
			return err
		}
	}
	for _, l := range cfg.Links {
		if err := linkValidator(l, known); err != nil {
			return err
		}
	}
	if _, err := cfg.GetLinks(); err != nil {
		return err
	}

	// steps may add and remove routers, so track which ids exist as we go
	for idx, step := range cfg.Steps {
		kind, err := step.Kind()
		if err != nil {
			return fmt.Errorf("step %d: %w", idx, err)
		}
		switch kind {
		case StepAdd:
			err = IdValidator(string(step.Add))
			known[step.Add] = true
		case StepRemove:
			err = IdValidator(string(step.Remove))
			delete(known, step.Remove)
		case StepLink:
			err = linkValidator(*step.Link, known)
		case StepUnlink:
			if len(step.Unlink) != 2 {
				err = fmt.Errorf("unlink expects exactly two routers, got %v", step.Unlink)
			}
		case StepPropagate:
			err = IdValidator(string(step.Propagate))
		case StepConverge:
			if *step.Converge < 0 {
				err = fmt.Errorf("converge rounds must not be negative, got %d", *step.Converge)
			}
		}
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", idx, kind, err)
		}
	}
	return nil
}

func linkValidator(l LinkCfg, known map[RouterId]bool) error {
	if !known[l.A] {
		return fmt.Errorf("%w: router %s not defined", ErrNotFound, l.A)
	}
	if !known[l.B] {
		return fmt.Errorf("%w: router %s not defined", ErrNotFound, l.B)
	}
	if l.A == l.B {
		return fmt.Errorf("%w: %s cannot link to itself", ErrInvalidLink, l.A)
	}
	return WeightValidator(l.Weight)
}
