package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gopheros/device/serial"
	"gopheros/kernel/event"
	"gopheros/kernel/scheme"
	"gopheros/kernel/scheme/debug"
)

// endOfTransmission terminates a console session.
const endOfTransmission = 0x04

// streamUART emulates a UART on top of host streams. Transmitted bytes are
// written to out; received bytes are queued by the input pump.
type streamUART struct {
	out io.Writer

	mu sync.Mutex
	rx []byte
}

func (u *streamUART) Send(b byte) {
	_, _ = u.out.Write([]byte{b})
}

func (u *streamUART) Receive() (byte, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if len(u.rx) == 0 {
		return 0, false
	}

	b := u.rx[0]
	u.rx = u.rx[1:]
	return b, true
}

func (u *streamUART) push(data ...byte) {
	u.mu.Lock()
	u.rx = append(u.rx, data...)
	u.mu.Unlock()
}

// pumpInput feeds r into the UART receive buffer and raises a receive
// interrupt on port for every chunk. EOF or a read error is delivered as an
// end of transmission byte. The pump stops once an end of transmission byte
// has been delivered, without waiting for r to be closed.
func pumpInput(r io.Reader, uart *streamUART, port *serial.Port) {
	buf := make([]byte, 128)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			uart.push(buf[:n]...)
			port.HandleInterrupt()

			if bytes.IndexByte(buf[:n], endOfTransmission) >= 0 {
				return
			}
		}

		if err != nil {
			uart.push(endOfTransmission)
			port.HandleInterrupt()
			return
		}
	}
}

// runConsole echoes everything read from the debug scheme back through it
// until an end of transmission byte is received.
func runConsole(dbg scheme.Scheme) error {
	file, serr := dbg.Open([]byte(""), 0, uint32(os.Getuid()), uint32(os.Getgid()))
	if serr != nil {
		return NewExitError(fmt.Sprintf("unable to open debug scheme: %s", serr), ExitCodeGeneric)
	}
	defer dbg.Close(file)

	buf := make([]byte, 256)
	for {
		n, serr := dbg.Read(file, buf)
		if serr != nil {
			return NewExitError(fmt.Sprintf("debug read failed: %s", serr), ExitCodeGeneric)
		}

		data := buf[:n]
		eot := bytes.IndexByte(data, endOfTransmission)
		if eot >= 0 {
			data = data[:eot]
		}

		if _, serr := dbg.Write(file, data); serr != nil {
			return NewExitError(fmt.Sprintf("debug write failed: %s", serr), ExitCodeWriteFailed)
		}

		if eot >= 0 {
			return nil
		}
	}
}

func NewConsoleCmd(root *cobra.Command) *cobra.Command {
	c := &cobra.Command{
		Use:   "console",
		Short: "Attach the terminal to the debug console scheme",
		Long: `Attach stdin and stdout to the "debug:" scheme through an emulated serial
port. Input is echoed back through the scheme until end of input (Ctrl-D).`,
		Args: cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := readConfig(cmd)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			id := scheme.ID(cfg.Console.SchemeID)
			uart := &streamUART{out: cmd.OutOrStdout()}
			port := serial.NewPort(uart)
			dbg := debug.New(id, port)
			port.SetReceiver(debug.Input)

			unregister := event.Register(id, func(ev event.Event) {
				cfg.Logger.Debugf("debug: %d byte(s) waiting", ev.Data)
			})
			defer unregister()

			cfg.Logger.Debugf("debug scheme registered with id %d", id)
			pumpDone := make(chan struct{})
			go func() {
				defer close(pumpDone)
				pumpInput(cmd.InOrStdin(), uart, port)
			}()

			if err := runConsole(dbg); err != nil {
				return err
			}

			// The session ends with the last byte the pump delivered.
			<-pumpDone
			return nil
		},
	}
	root.AddCommand(c)
	c.Flags().Uint32("scheme-id", 1, "ID to register the debug scheme with")
	_ = viper.BindPFlag("console.scheme-id", c.Flags().Lookup("scheme-id"))
	return c
}

// register the subcommand into rootCmd
var _ = NewConsoleCmd(rootCmd)
