package audio

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/gordonklaus/portaudio"
)

type direction string

const (
	directionInput  direction = "input"
	directionOutput direction = "output"
)

// lookupDevice resolves a device by ID, by name substring or, when empty, the system default.
func lookupDevice(nameOrID string, dir direction) (*portaudio.DeviceInfo, error) {
	var (
		d   *portaudio.DeviceInfo
		err error
	)

	if nameOrID == "" {
		if dir == directionInput {
			d, err = portaudio.DefaultInputDevice()
		} else {
			d, err = portaudio.DefaultOutputDevice()
		}
		if err != nil {
			return nil, fmt.Errorf("get default audio %s device: %w", dir, err)
		}
	} else {
		d, err = findDevice(nameOrID)
		if err != nil {
			return nil, fmt.Errorf("get audio %s device: %w", dir, err)
		}

		channels := d.MaxOutputChannels
		if dir == directionInput {
			channels = d.MaxInputChannels
		}

		if channels < 1 {
			PrintDevices(os.Stderr)
			return nil, fmt.Errorf("audio device %q is not an %s device or in use by another program", d.Name, dir)
		}
	}

	slog.Info("using audio device", "direction", dir, "name", d.Name, "sampleRate", int(d.DefaultSampleRate))

	return d, nil
}

func findDevice(device string) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list available audio devices: %w", err)
	}

	deviceID, err := strconv.ParseInt(device, 10, 32)
	if err != nil {
		for _, d := range devices {
			if strings.Contains(d.Name, device) {
				return d, nil
			}
		}

		PrintDevices(os.Stderr)

		return nil, fmt.Errorf("audio device %q not found", device)
	}

	if deviceID >= int64(len(devices)) || deviceID < 0 {
		PrintDevices(os.Stderr)

		return nil, fmt.Errorf("audio device %d not found - please specify the ID of an existing device", deviceID)
	}

	return devices[deviceID], nil
}

// PrintDevices writes a table of the available audio devices.
func PrintDevices(w io.Writer) {
	devices, err := portaudio.Devices()
	if err != nil {
		slog.Warn("get available audio devices", "err", err)
		return
	}

	fmt.Fprintln(w, "\nAvailable audio devices:")
	fmt.Fprintf(w, "%2s  %-55s  %2s  %3s  %s\n", "ID", "NAME", "IN", "OUT", "SAMPLERATE")

	for i, device := range devices {
		fmt.Fprintf(w, "%2d  %-55s  %2d  %3d  %10d\n", i, device.Name, device.MaxInputChannels, device.MaxOutputChannels, int(device.DefaultSampleRate))
	}

	fmt.Fprintln(w)
}
