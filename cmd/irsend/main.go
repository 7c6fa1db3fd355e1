package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/Alr2303/irsharp/pkg/config"
	"github.com/Alr2303/irsharp/pkg/logger"
	"github.com/Alr2303/irsharp/pkg/pulse"
	"github.com/Alr2303/irsharp/pkg/sharp"
	"github.com/Alr2303/irsharp/pkg/transceiver"
)

var (
	version   = "dev"
	gitCommit = "unknown"
	buildTime = "unknown"
)

func main() {
	// Parse command line flags
	protocol := flag.String("protocol", "sharp", "Protocol to transmit (sharp | sharp_ac)")
	address := flag.Uint("address", 0x01, "Device address (sharp, 5 bits)")
	command := flag.Uint("command", 0, "Command (sharp, 8 bits)")
	expansion := flag.Uint("expansion", 1, "Expansion bit (sharp)")
	check := flag.Uint("check", 0, "Check bit (sharp)")
	msbFirst := flag.Bool("msb", false, "Pack address/command MSB-first (legacy frame order)")
	state := flag.String("state", "", "Raw state as 26 hex digits (sharp_ac)")
	power := flag.Bool("power", true, "Power setting (sharp_ac, ignored with -state)")
	mode := flag.String("mode", "auto", "Operating mode: auto | heat | cool | dry (sharp_ac, ignored with -state)")
	temp := flag.Uint("temp", 22, "Temperature in degrees C (sharp_ac, ignored with -state)")
	fan := flag.String("fan", "auto", "Fan speed: auto | min | med | high | max (sharp_ac, ignored with -state)")
	repeat := flag.Uint("repeat", 0, "Extra repeats per transmission")
	device := flag.String("device", "/dev/ttyUSB0", "Serial transceiver device")
	baud := flag.Int("baud", 115200, "Serial baud rate")
	dryRun := flag.Bool("dry-run", false, "Print the pulse train instead of transmitting")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	// Show version
	if *showVersion {
		fmt.Printf("irsend %s\n", version)
		fmt.Printf("Git Commit: %s\n", gitCommit)
		fmt.Printf("Built: %s\n", buildTime)
		os.Exit(0)
	}

	log := logger.New(logger.Config{
		Level:  "info",
		Format: "text",
	})

	switch *protocol {
	case "sharp":
		value := sharp.EncodeClassic(uint16(*address), uint16(*command),
			uint8(*expansion), uint8(*check), *msbFirst)

		if *dryRun {
			printTrain(sharp.BuildClassic(uint64(value), sharp.ClassicBits, uint16(*repeat)),
				sharp.CarrierHz, sharp.ClassicDutyPercent)
			return
		}

		trx := openTransceiver(*device, *baud, log)
		defer func() { _ = trx.Close() }()

		if err := sharp.SendClassicRaw(trx, uint64(value), sharp.ClassicBits, uint16(*repeat)); err != nil {
			log.Error("Transmit failed", logger.Error(err))
			os.Exit(1)
		}
		fmt.Printf("Sent sharp frame: addr=0x%02X cmd=0x%02X value=0x%04X\n",
			*address, *command, value)

	case "sharp_ac":
		raw, err := acStateFromFlags(*state, *power, *mode, *temp, *fan)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}

		if *dryRun {
			printTrain(sharp.BuildAC(raw, uint16(*repeat)),
				sharp.CarrierHz, sharp.ACDutyPercent)
			return
		}

		trx := openTransceiver(*device, *baud, log)
		defer func() { _ = trx.Close() }()

		if err := sharp.SendAC(trx, raw, uint16(*repeat)); err != nil {
			log.Error("Transmit failed", logger.Error(err))
			os.Exit(1)
		}
		st := &sharp.ACState{}
		st.SetRaw(raw)
		fmt.Printf("Sent sharp_ac frame: %s (%X)\n", st.String(), raw)

	default:
		fmt.Fprintf(os.Stderr, "unknown protocol %q (want sharp or sharp_ac)\n", *protocol)
		os.Exit(2)
	}
}

// acStateFromFlags returns the state to transmit: the raw hex when given,
// otherwise one built from the individual settings.
func acStateFromFlags(stateHex string, power bool, mode string, temp uint, fan string) ([sharp.ACStateLength]byte, error) {
	var out [sharp.ACStateLength]byte

	if stateHex != "" {
		raw, err := hex.DecodeString(stateHex)
		if err != nil {
			return out, fmt.Errorf("invalid state hex: %w", err)
		}
		if len(raw) != sharp.ACStateLength {
			return out, fmt.Errorf("state must be %d bytes, got %d", sharp.ACStateLength, len(raw))
		}
		copy(out[:], raw)
		return out, nil
	}

	st := sharp.NewACState()
	st.SetPower(power)
	m, err := parseACMode(mode)
	if err != nil {
		return out, err
	}
	st.SetMode(m)
	st.SetTemp(uint8(temp))
	f, err := parseACFan(fan)
	if err != nil {
		return out, err
	}
	st.SetFan(f)
	return st.GetRaw(), nil
}

func parseACMode(s string) (uint8, error) {
	switch strings.ToLower(s) {
	case "auto":
		return sharp.ACModeAuto, nil
	case "heat":
		return sharp.ACModeHeat, nil
	case "cool":
		return sharp.ACModeCool, nil
	case "dry":
		return sharp.ACModeDry, nil
	default:
		return 0, fmt.Errorf("unknown mode %q (want auto, heat, cool or dry)", s)
	}
}

func parseACFan(s string) (uint8, error) {
	switch strings.ToLower(s) {
	case "auto":
		return sharp.ACFanAuto, nil
	case "min":
		return sharp.ACFanMin, nil
	case "med":
		return sharp.ACFanMed, nil
	case "high":
		return sharp.ACFanHigh, nil
	case "max":
		return sharp.ACFanMax, nil
	default:
		return 0, fmt.Errorf("unknown fan speed %q (want auto, min, med, high or max)", s)
	}
}

func openTransceiver(device string, baud int, log *logger.Logger) *transceiver.Transceiver {
	trx, err := transceiver.Open(config.TransceiverConfig{
		Device: device,
		Baud:   baud,
	}, log)
	if err != nil {
		log.Error("Failed to open transceiver", logger.Error(err))
		os.Exit(1)
	}
	return trx
}

// printTrain writes the pulse train as µs durations, eight per line.
func printTrain(train pulse.Train, carrierHz uint32, duty uint8) {
	fmt.Printf("# %d entries, %.1f ms on air, %d Hz carrier, %d%% duty\n",
		len(train), float64(train.Duration().Microseconds())/1000.0, carrierHz, duty)
	for i, d := range train {
		if i > 0 && i%8 == 0 {
			fmt.Println()
		}
		fmt.Printf("%6d ", d)
	}
	fmt.Println()
}
