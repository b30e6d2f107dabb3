package cli

import (
	"bytes"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sanity-io/litter"
	"github.com/spf13/viper"
	"github.com/twpayne/go-vfs/vfst"
)

var _ = Describe("Config", Label("config"), func() {
	var (
		fs      *vfst.TestFS
		cleanup func()
		errBuf  *bytes.Buffer
	)
	BeforeEach(func() {
		var err error
		fs, cleanup, err = vfst.NewTestFS(map[string]interface{}{
			"/etc/gopheros/gopheros.yaml": `debug: true
rsdp:
  images: [/a.img, /b.img@0x100000]
console:
  scheme-id: "0x10"
`,
			"/etc/broken/gopheros.yaml": "rsdp: [",
		})
		Expect(err).ToNot(HaveOccurred())
		errBuf = new(bytes.Buffer)
	})
	AfterEach(func() {
		viper.Reset()
		cleanup()
	})
	It("Reads defaults without a config dir", func() {
		cfg, err := ReadConfig(fs, "", errBuf)
		Expect(err).ToNot(HaveOccurred())
		Expect(cfg.Debug).To(BeFalse())
		Expect(cfg.RSDP.Images).To(BeEmpty())
		Expect(cfg.RSDP.Region.IsZero()).To(BeTrue())
		Expect(cfg.Logger).ToNot(BeNil())
	})
	It("Decodes hexadecimal values from the config file", func() {
		cfg, err := ReadConfig(fs, fs.TempDir()+"/etc/gopheros", errBuf)
		Expect(err).ToNot(HaveOccurred())
		Expect(cfg.Debug).To(BeTrue(), litter.Sdump(cfg.RSDP, cfg.Console))
		Expect(cfg.RSDP.Images).To(Equal([]string{"/a.img", "/b.img@0x100000"}))
		Expect(cfg.Console.SchemeID).To(Equal(uint32(0x10)))
	})
	It("Lets the environment override the config file", func() {
		Expect(os.Setenv("GOPHEROS_CONSOLE_SCHEME_ID", "42")).To(Succeed())
		Expect(os.Setenv("GOPHEROS_RSDP_REGION", "0x8004:0x40")).To(Succeed())
		Expect(os.Setenv("GOPHEROS_RSDP_IMAGES", "/c.img,/d.img@0x8000")).To(Succeed())
		defer os.Unsetenv("GOPHEROS_CONSOLE_SCHEME_ID")
		defer os.Unsetenv("GOPHEROS_RSDP_REGION")
		defer os.Unsetenv("GOPHEROS_RSDP_IMAGES")

		cfg, err := ReadConfig(fs, fs.TempDir()+"/etc/gopheros", errBuf)
		Expect(err).ToNot(HaveOccurred())
		Expect(cfg.Console.SchemeID).To(Equal(uint32(42)))
		Expect(cfg.RSDP.Region).To(Equal(RegionSpec{Base: 0x8004, Size: 0x40}))
		Expect(cfg.RSDP.Images).To(Equal([]string{"/c.img", "/d.img@0x8000"}))
	})
	It("Rejects malformed values", func() {
		Expect(os.Setenv("GOPHEROS_CONSOLE_SCHEME_ID", "0xfffffffff")).To(Succeed())
		defer os.Unsetenv("GOPHEROS_CONSOLE_SCHEME_ID")

		_, err := ReadConfig(fs, "", errBuf)
		Expect(err).To(HaveOccurred())
		Expect(exitCode(err)).To(Equal(ExitCodeBadConfig))
	})
	It("Rejects malformed config files", func() {
		_, err := ReadConfig(fs, fs.TempDir()+"/etc/broken", errBuf)
		Expect(err).To(HaveOccurred())
		Expect(exitCode(err)).To(Equal(ExitCodeBadConfig))
	})
	It("Fails when the logfile cannot be opened", func() {
		viper.Set("logfile", "/missing/dir/gopheros.log")

		_, err := ReadConfig(fs, "", errBuf)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("could not open /missing/dir/gopheros.log for logging"))
	})
})
