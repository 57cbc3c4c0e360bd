package quantize

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownOption is returned when parsing an unrecognised isolines
// channel, threshold mode or fill mode.
var ErrUnknownOption = errors.New("unknown isolines option")

var channelNames = [...]string{"lightness", "luma", "red", "green", "blue", "alpha"}

var thresholdNames = [...]string{"equal", "quantile", "explicit"}

var fillNames = [...]string{"none", "mean", "sample", "gray"}

func (c Channel) String() string {
	if int(c) < len(channelNames) {
		return channelNames[c]
	}
	return fmt.Sprintf("Channel(%d)", c)
}

func (m ThresholdMode) String() string {
	if int(m) < len(thresholdNames) {
		return thresholdNames[m]
	}
	return fmt.Sprintf("ThresholdMode(%d)", m)
}

func (f FillMode) String() string {
	if int(f) < len(fillNames) {
		return fillNames[f]
	}
	return fmt.Sprintf("FillMode(%d)", f)
}

func lookup(names []string, kind, s string) (int, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return 0, nil
	}
	for i, n := range names {
		if n == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %s %q", ErrUnknownOption, kind, s)
}

// ParseChannel parses a channel name; "" selects lightness.
func ParseChannel(s string) (Channel, error) {
	i, err := lookup(channelNames[:], "channel", s)
	return Channel(i), err
}

// ParseThresholdMode parses a threshold mode; "" selects equal.
func ParseThresholdMode(s string) (ThresholdMode, error) {
	i, err := lookup(thresholdNames[:], "threshold mode", s)
	return ThresholdMode(i), err
}

// ParseFillMode parses a fill mode; "" selects none. "grey" is accepted.
func ParseFillMode(s string) (FillMode, error) {
	if strings.EqualFold(strings.TrimSpace(s), "grey") {
		s = "gray"
	}
	i, err := lookup(fillNames[:], "fill", s)
	return FillMode(i), err
}
