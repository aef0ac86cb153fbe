package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pico-keys/go-pico/pkg/devices"
	"github.com/pico-keys/go-pico/pkg/hsm"
	"github.com/pico-keys/go-pico/pkg/options"
)

func main() {
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelDebug)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	}))

	manager := devices.NewManager(options.WithLogger(logger))

	found := manager.Scan()
	if len(found) == 0 {
		fmt.Println("No Pico tokens found.")
		return
	}

	for i, dev := range found {
		fmt.Printf("%d) %s: serial=%q firmware=%s path=%s\n",
			i+1,
			dev.Type,
			dev.Serial,
			dev.FirmwareVersion,
			dev.Path,
		)
	}

	for _, dev := range found {
		if dev.Type != devices.HsmToken {
			continue
		}

		module := hsm.NewModule(hsm.PCSCConnector{}, options.WithLogger(logger))
		module.SetDevicePath(dev.Path)

		info, err := module.GetDeviceInfo()
		if err != nil {
			panic(err)
		}
		fmt.Printf("HSM firmware: %s\n", info.FirmwareVersion)
		fmt.Printf("Memory: %d/%d bytes used, %d files\n",
			info.UsedMemory, info.TotalMemory, info.FileCount)

		keys, err := module.ListKeys("648219")
		if err != nil {
			panic(err)
		}
		for _, key := range keys {
			fmt.Printf("Key %d: %s (%s)\n", key.ID, key.Label, key.Type)
		}
	}

	monitor := devices.NewMonitor(manager, devices.DefaultPollInterval, options.WithLogger(logger))
	defer monitor.Close()

	fmt.Println("Watching for device changes, Ctrl+C to stop.")
	for event := range monitor.Events() {
		fmt.Printf("Device population changed (%s): %d device(s)\n", event.ID, len(event.Devices))
	}
}
