package cli

import (
	"bytes"
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/viper"

	"gopheros/kernel/kfmt"
	"gopheros/kernel/scheme"
	"gopheros/kernel/scheme/debug"
	"gopheros/kernel/syscall"
)

var _ = Describe("Console", Label("console", "cmd"), func() {
	var errBuf *bytes.Buffer
	BeforeEach(func() {
		rootCmd = NewRootCmd()
		_ = NewConsoleCmd(rootCmd)
		errBuf = new(bytes.Buffer)
		rootCmd.SetErr(errBuf)
	})
	AfterEach(func() {
		viper.Reset()
		kfmt.SetDefault(nil)
	})
	It("Echoes input through the debug scheme", func() {
		rootCmd.SetIn(strings.NewReader("hello\nworld\n"))
		_, output, err := executeCommandC(rootCmd, "console")
		Expect(err).ToNot(HaveOccurred(), errBuf.String())
		Expect(output).To(Equal("hello\nworld\n"))
	})
	It("Ends the session on empty input", func() {
		rootCmd.SetIn(strings.NewReader(""))
		_, output, err := executeCommandC(rootCmd, "console")
		Expect(err).ToNot(HaveOccurred())
		Expect(output).To(BeEmpty())
	})
	It("Ends the session at the end of transmission byte while input stays open", func() {
		r, w := io.Pipe()
		defer w.Close()
		rootCmd.SetIn(r)

		go func() {
			_, _ = w.Write([]byte("ok\x04"))
		}()

		var output string
		done := make(chan error, 1)
		go func() {
			var err error
			_, output, err = executeCommandC(rootCmd, "console")
			done <- err
		}()

		Eventually(done, "5s").Should(Receive(BeNil()))
		Expect(output).To(Equal("ok"))
	})
	It("Publishes the scheme ID and logs read events", Label("flags"), func() {
		rootCmd.SetIn(strings.NewReader("ls\n"))
		_, output, err := executeCommandC(rootCmd, "console", "--debug", "--scheme-id", "7")
		Expect(err).ToNot(HaveOccurred(), errBuf.String())
		Expect(output).To(Equal("ls\n"))
		Expect(debug.SchemeID.Load()).To(Equal(scheme.ID(7)))
		Expect(errBuf.String()).To(ContainSubstring("debug scheme registered with id 7"))
		Expect(errBuf.String()).To(ContainSubstring("debug: 1 byte(s) waiting"))
	})
})

var _ = Describe("Console session", Label("console"), func() {
	It("Stops echoing at the end of transmission byte", func() {
		var out bytes.Buffer
		dbg := debug.New(scheme.ID(9), &out)

		for _, b := range []byte("ok\x04") {
			debug.Input(b)
		}

		Expect(runConsole(dbg)).To(Succeed())
		Expect(out.String()).To(Equal("ok"))
	})
	It("Reports scheme write failures", func() {
		dbg := &failingScheme{Scheme: debug.New(scheme.ID(10), io.Discard)}
		debug.Input('x')

		err := runConsole(dbg)
		Expect(err).To(HaveOccurred())
		Expect(exitCode(err)).To(Equal(ExitCodeWriteFailed))
	})
})

// failingScheme fails every write with EIO.
type failingScheme struct {
	*debug.Scheme
}

func (*failingScheme) Write(scheme.Handle, []byte) (int, *syscall.Error) {
	return 0, syscall.New(syscall.EIO)
}
