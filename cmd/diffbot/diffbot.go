package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
	"periph.io/x/periph/host"

	"github.com/tigerbot-team/tigerbot/diffbot/pkg/buttons"
	"github.com/tigerbot-team/tigerbot/diffbot/pkg/config"
	"github.com/tigerbot-team/tigerbot/diffbot/pkg/diffdrive"
	"github.com/tigerbot-team/tigerbot/diffbot/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/diffbot/pkg/telemetry"
	"github.com/tigerbot-team/tigerbot/diffbot/pkg/ultrasonic"
)

var _ diffdrive.RangeSource = (*ultrasonic.Ultrasonic)(nil)

// Encoder ticks per hardware read per unit of duty when running on the
// simulated board.
const simTicksPerRead = 20

var CLI struct {
	Config string `help:"YAML config file." default:"/cfg/diffbot.yaml" type:"path"`

	Run      RunCmd      `cmd:"" default:"1" help:"Drive the route."`
	Encoders EncodersCmd `cmd:"" help:"Print the raw encoder counters."`
	Show     ShowCmd     `cmd:"" name:"config" help:"Print the effective config."`
}

type Context struct {
	cfg config.Config
}

type RunCmd struct {
	Dummy bool      `help:"Use the simulated motor board and skip GPIO."`
	Loop  bool      `help:"Restart the route when it is finished."`
	Goal  []float64 `help:"Drive to a single goal x,y (mm) instead of the route." sep:","`
	InUse string    `help:"Write the effective config here." type:"path"`
}

func (r *RunCmd) Run(c *Context) error {
	cfg := c.cfg
	if len(r.Goal) != 0 && len(r.Goal) != 2 {
		return errors.Errorf("--goal needs exactly x,y, got %v", r.Goal)
	}
	if r.InUse != "" {
		if err := cfg.WriteInUse(r.InUse); err != nil {
			fmt.Println("Failed to write in-use config:", err)
		}
	}

	// Our global context, we cancel it to trigger shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	registerSignalHandlers(cancel)

	hw, shutdown, err := openHardware(ctx, cfg, r.Dummy)
	if err != nil {
		return err
	}
	defer shutdown()

	dd, err := diffdrive.New(cfg.WheelDistanceMM, cfg.CasterDistanceMM)
	if err != nil {
		return err
	}
	dd.Verbose = cfg.Verbose
	if err := dd.AddWheel(cfg.LeftWheel(), cfg.Left.Reversed, hw); err != nil {
		return errors.Wrap(err, "left wheel")
	}
	if err := dd.AddWheel(cfg.RightWheel(), cfg.Right.Reversed, hw); err != nil {
		return errors.Wrap(err, "right wheel")
	}
	// Make sure nothing moves while we exit, whichever way that happens.
	defer dd.Halt()

	if len(r.Goal) == 2 {
		if err := dd.SetGoal(r.Goal[0], r.Goal[1]); err != nil {
			return err
		}
	} else {
		dd.AttachPlanner(cfg.Planner())
	}

	if cfg.TelemetryPath != "" {
		rec, err := telemetry.Create(cfg.TelemetryPath)
		if err != nil {
			return err
		}
		defer func() {
			if err := rec.Close(); err != nil {
				fmt.Println("Failed to close telemetry log:", err)
			}
		}()
		dd.SetRecorder(rec)
	}

	var pause, mode <-chan struct{}
	if !r.Dummy {
		pause, mode = startGPIO(ctx, cfg, dd)
	}

	loop := cfg.Route.Loop || r.Loop
	pose := dd.Pose()
	goal := dd.Goal()
	fmt.Printf("Starting at (%.0f, %.0f) heading %.2f, first goal (%.0f, %.0f), loop=%v\n",
		pose.X, pose.Y, pose.Heading, goal.X, goal.Y, loop)
	dd.Start(loop)

	ticker := time.NewTicker(cfg.TickInterval)
	defer ticker.Stop()
	watchdog := time.NewTicker(5 * time.Second)
	defer watchdog.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("Context done, halting")
			return nil
		case _, ok := <-pause:
			if !ok {
				pause = nil
				continue
			}
			fmt.Println("Pause pressed: halting")
			dd.Halt()
		case _, ok := <-mode:
			if !ok {
				mode = nil
				continue
			}
			fmt.Println("Mode pressed: running")
			dd.Start(loop)
		case <-ticker.C:
			dd.Step()
		case <-watchdog.C:
			pose := dd.Pose()
			diag := dd.Diagnostics()
			fmt.Printf("Main loop still running: running=%v pose=(%.0f, %.0f, %.2f) errors=%d/%d/%d\n",
				dd.Running(), pose.X, pose.Y, pose.Heading,
				diag.EncoderErrors, diag.MotorErrors, diag.ConfigErrors)
		}
	}
}

// openHardware returns the motor board to drive (real or simulated) and a
// function that shuts it down.
func openHardware(ctx context.Context, cfg config.Config, dummy bool) (hardware.Interface, func(), error) {
	if dummy {
		fmt.Println("Using the simulated motor board")
		sim := hardware.NewSim(simTicksPerRead, map[hardware.MotorID]hardware.EncoderID{
			hardware.MotorID(cfg.Left.Motor):  hardware.EncoderID(cfg.Left.Encoder),
			hardware.MotorID(cfg.Right.Motor): hardware.EncoderID(cfg.Right.Encoder),
		})
		sim.Verbose = cfg.Verbose
		return sim, func() {}, nil
	}

	if _, err := host.Init(); err != nil {
		return nil, nil, errors.Wrap(err, "initialising periph")
	}
	hw := hardware.New(cfg.Hardware.I2CBus, cfg.Hardware.BoardAddr, cfg.Hardware.PollInterval)
	hw.Start(ctx)
	return hw, func() {
		fmt.Println("Zeroing motors for shut down")
		hw.Shutdown()
	}, nil
}

// startGPIO brings up the optional ultrasonic sensor and buttons.  Failures
// are logged; the robot can drive without them.
func startGPIO(ctx context.Context, cfg config.Config, dd *diffdrive.DifferentialDrive) (pause, mode <-chan struct{}) {
	pins := cfg.Pins
	if pins.UltrasonicTrigger != "" && pins.UltrasonicEcho != "" {
		us, err := ultrasonic.Open(pins.UltrasonicTrigger, pins.UltrasonicEcho)
		if err != nil {
			fmt.Println("Ultrasonic sensor unavailable:", err)
		} else {
			us.Verbose = cfg.Verbose
			dd.SetRangeSource(us)
			go func() {
				if err := us.Run(ctx); err != nil {
					fmt.Println("Ultrasonic loop failed:", err)
				}
			}()
		}
	}
	pause = watchButton(ctx, "pause", pins.PauseButton, pins.ButtonDebounce)
	mode = watchButton(ctx, "mode", pins.ModeButton, pins.ButtonDebounce)
	return
}

func watchButton(ctx context.Context, what, name string, debounce time.Duration) <-chan struct{} {
	if name == "" {
		return nil
	}
	pin, err := buttons.Open(name)
	if err != nil {
		fmt.Printf("No %s button: %v\n", what, err)
		return nil
	}
	presses, err := buttons.Watch(ctx, pin, debounce)
	if err != nil {
		fmt.Printf("No %s button: %v\n", what, err)
		return nil
	}
	return presses
}

type EncodersCmd struct {
	Dummy    bool          `help:"Use the simulated motor board."`
	Interval time.Duration `help:"Time between prints." default:"500ms"`
}

func (e *EncodersCmd) Run(c *Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	registerSignalHandlers(cancel)

	hw, shutdown, err := openHardware(ctx, c.cfg, e.Dummy)
	if err != nil {
		return err
	}
	defer shutdown()

	ticker := time.NewTicker(e.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		line := ""
		for id := hardware.Encoder1; id <= hardware.Encoder4; id++ {
			count, err := hw.ReadEncoder(id)
			if err != nil {
				line += fmt.Sprintf("%v=ERR(%v) ", id, err)
				continue
			}
			line += fmt.Sprintf("%v=%d ", id, count)
		}
		fmt.Println(line)
	}
}

type ShowCmd struct{}

func (s *ShowCmd) Run(c *Context) error {
	data, err := yaml.Marshal(&c.cfg)
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}

func main() {
	fmt.Println("---- diffbot ----")
	fmt.Println("GOMAXPROCS", runtime.GOMAXPROCS(0))

	kctx := kong.Parse(&CLI,
		kong.Name("diffbot"),
		kong.Description("Differential-drive robot controller."),
		kong.UsageOnError(),
	)

	cfg, err := config.Load(CLI.Config)
	kctx.FatalIfErrorf(err)

	err = kctx.Run(&Context{cfg: cfg})
	kctx.FatalIfErrorf(err)
}

func registerSignalHandlers(cancelFunc context.CancelFunc) {
	// Hook Ctrl-C to cause shut down.
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		s := <-signals
		log.Println("Signal: ", s)
		cancelFunc()
		time.Sleep(2 * time.Second)
		os.Exit(0)
	}()
}
