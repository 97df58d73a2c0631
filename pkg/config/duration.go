package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration accepts Go duration strings ("3s") as well as plain seconds within the config file.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any

	err := json.Unmarshal(b, &v)
	if err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(value * float64(time.Second))
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("parse duration: %w", err)
		}

		*d = Duration(parsed)
	default:
		return fmt.Errorf("invalid duration %s", string(b))
	}

	return nil
}

// Set implements flag.Value.
func (d *Duration) Set(s string) error {
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}

	*d = Duration(parsed)

	return nil
}

func (d Duration) String() string {
	return time.Duration(d).String()
}
