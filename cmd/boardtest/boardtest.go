package main

import (
	"fmt"
	"time"

	"github.com/alecthomas/kong"

	"github.com/tigerbot-team/tigerbot/diffbot/pkg/motorboard"
)

var CLI struct {
	Bus  string  `help:"I²C bus device." default:"/dev/i2c-1"`
	Addr int     `help:"Motor board address." default:"68"`
	Duty float64 `help:"Duty to ramp the motors up to." default:"0.3"`
}

func main() {
	kong.Parse(&CLI)

	fmt.Println("Motor board test program")
	board, err := motorboard.New(CLI.Bus, CLI.Addr)
	if err != nil {
		panic(err)
	}
	defer board.Close()
	fmt.Println("Opened motor board.")

	step := CLI.Duty / 10
	d := 0.0
	for {
		for ch := 0; ch < motorboard.NumChannels; ch++ {
			_ = board.SetDuty(ch, d)
		}
		counts, _ := board.ReadEncoders()
		status, _ := board.Status()
		fmt.Printf("duty=%.2f enc=%v Status=%x\n", d, counts, status)
		d += step
		if d > CLI.Duty || d < -CLI.Duty {
			step = -step
		}
		time.Sleep(500 * time.Millisecond)
	}
}
