package cli

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sanity-io/litter"
	"github.com/spf13/viper"
	"github.com/twpayne/go-vfs"
	"github.com/twpayne/go-vfs/vfst"
	"gopkg.in/yaml.v3"

	"gopheros/device/acpi/table"
	"gopheros/kernel/kfmt"
)

func sealedRSDP(revision uint8, sdtAddr uint64) table.RSDPDescriptor {
	desc := table.RSDPDescriptor{
		Signature: table.RSDPSignature,
		OEMID:     [6]byte{'B', 'O', 'C', 'H', 'S', ' '},
		Revision:  revision,
		RSDTAddr:  uint32(sdtAddr),
	}

	if revision == table.RevisionACPI2Plus {
		desc.Length = table.SizeofExtRSDP
		desc.XSDTAddr = sdtAddr
	}

	desc.Seal()
	return desc
}

// biosImage returns a 128K image of [0xe0000, 0xfffff] with the given RSDP
// at offset.
func biosImage(offset int, desc *table.RSDPDescriptor) []byte {
	img := make([]byte, 0x20000)
	if desc != nil {
		copy(img[offset:], desc.Bytes())
	}
	return img
}

// suppliedImage returns an image meant to be loaded at 0x8000 holding a
// chunk list at 0x8004.
func suppliedImage(descs ...table.RSDPDescriptor) []byte {
	img := make([]byte, 4)
	for _, desc := range descs {
		payload := desc.Bytes()
		if desc.IsACPI1() {
			payload = payload[:table.SizeofRSDP]
		}
		var prefix [4]byte
		binary.LittleEndian.PutUint32(prefix[:], uint32(len(payload)))
		img = append(img, prefix[:]...)
		img = append(img, payload...)
	}
	return img
}

var _ = Describe("RSDP", Label("rsdp", "cmd"), func() {
	var (
		fs      *vfst.TestFS
		cleanup func()
		errBuf  *bytes.Buffer
	)

	BeforeEach(func() {
		rev1 := sealedRSDP(table.RevisionACPI1, 0x7fe14ad)
		rev2 := sealedRSDP(table.RevisionACPI2Plus, 0x7fe1500)
		broken := sealedRSDP(table.RevisionACPI1, 0xdead)
		broken.Checksum++

		corrupt := biosImage(0x100, &broken)
		copy(corrupt[0xf5a0:], rev1.Bytes())

		var err error
		fs, cleanup, err = vfst.NewTestFS(map[string]interface{}{
			"/images/bios.img":     biosImage(0xf5a0, &rev1),
			"/images/corrupt.img":  corrupt,
			"/images/empty.img":    biosImage(0, nil),
			"/images/supplied.img": suppliedImage(rev1, rev2),

			"/conf/gopheros.yaml": `rsdp:
  images:
    - /images/supplied.img@0x8000
  region: "0x8004:0x40"
  output: yaml
`,
		})
		Expect(err).ToNot(HaveOccurred())

		hostFS = fs
		rootCmd = NewRootCmd()
		_ = NewRSDPCmd(rootCmd)
		errBuf = new(bytes.Buffer)
		rootCmd.SetErr(errBuf)
	})
	AfterEach(func() {
		viper.Reset()
		cleanup()
		hostFS = vfs.OSFS
		kfmt.SetDefault(nil)
	})

	It("Finds an ACPI 1.0 RSDP by scanning the BIOS area", func() {
		_, output, err := executeCommandC(rootCmd, "rsdp", "--image", "/images/bios.img@0xe0000")
		Expect(err).ToNot(HaveOccurred(), errBuf.String())
		Expect(output).To(ContainSubstring(`signature: "RSD PTR "`))
		Expect(output).To(ContainSubstring(`oem: "BOCHS "`))
		Expect(output).To(ContainSubstring("revision: 0"))
		Expect(output).To(ContainSubstring("RSDT: 0x7fe14ad"))
	})
	It("Skips corrupted candidates while scanning", func() {
		_, output, err := executeCommandC(rootCmd, "rsdp", "--image", "/images/corrupt.img@0xe0000")
		Expect(err).ToNot(HaveOccurred(), errBuf.String())
		Expect(output).To(ContainSubstring("RSDT: 0x7fe14ad"))
		Expect(errBuf.String()).To(ContainSubstring("skipping corrupted RSDP candidate at 0xe0100"))
	})
	It("Prefers the ACPI 2.0 copy in a supplied region", Label("flags"), func() {
		_, output, err := executeCommandC(rootCmd, "rsdp",
			"--image", "/images/supplied.img@0x8000",
			"--region", "0x8004:0x40",
			"--output", "yaml",
		)
		Expect(err).ToNot(HaveOccurred(), errBuf.String())

		var report rsdpReport
		Expect(yaml.Unmarshal([]byte(output), &report)).To(Succeed())
		Expect(report.Revision).To(Equal(table.RevisionACPI2Plus), litter.Sdump(report))
		Expect(report.Table).To(Equal("XSDT"))
		Expect(report.XSDTAddress).To(Equal("0x7fe1500"))
		Expect(report.SDTAddress).To(Equal("0x7fe1500"))
		Expect(report.Length).To(Equal(uint32(table.SizeofExtRSDP)))
	})
	It("Dumps the raw descriptor", Label("flags"), func() {
		_, output, err := executeCommandC(rootCmd, "rsdp", "--image", "/images/bios.img@0xe0000", "-o", "dump")
		Expect(err).ToNot(HaveOccurred(), errBuf.String())
		Expect(output).To(ContainSubstring("RSDPDescriptor"))
		Expect(output).To(ContainSubstring("RSDTAddr: 134091949"))
	})
	It("Reports a missing RSDP with a dedicated exit code", func() {
		_, _, err := executeCommandC(rootCmd, "rsdp", "--image", "/images/empty.img@0xe0000")
		Expect(err).To(HaveOccurred())
		Expect(exitCode(err)).To(Equal(ExitCodeRSDPNotFound))
	})
	It("Ignores a region without valid chunks", func() {
		_, _, err := executeCommandC(rootCmd, "rsdp", "--image", "/images/empty.img@0x8000", "--region", "0x8004:0x40")
		Expect(exitCode(err)).To(Equal(ExitCodeRSDPNotFound))
	})
	It("Errors out without images", Label("flags"), func() {
		_, _, err := executeCommandC(rootCmd, "rsdp")
		Expect(err).To(HaveOccurred())
		Expect(exitCode(err)).To(Equal(ExitCodeBadConfig))
		Expect(err.Error()).To(ContainSubstring("at least one memory image is required"))
	})
	It("Errors out on unreadable images", func() {
		_, _, err := executeCommandC(rootCmd, "rsdp", "--image", "/images/missing.img")
		Expect(exitCode(err)).To(Equal(ExitCodeBadImage))
	})
	It("Errors out on overlapping images", func() {
		_, _, err := executeCommandC(rootCmd, "rsdp",
			"--image", "/images/bios.img@0xe0000",
			"--image", "/images/empty.img@0xf0000",
		)
		Expect(exitCode(err)).To(Equal(ExitCodeBadImage))
	})
	It("Errors out on malformed regions", Label("flags"), func() {
		_, _, err := executeCommandC(rootCmd, "rsdp", "--image", "/images/bios.img", "--region", "0x8004")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("expected BASE:SIZE"))

		_, _, err = executeCommandC(rootCmd, "rsdp", "--image", "/images/bios.img", "--region", "zz:0")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("invalid region base"))
		Expect(err.Error()).To(ContainSubstring("region size must be greater than zero"))
	})
	It("Errors out on regions larger than the loaded memory", Label("flags"), func() {
		_, _, err := executeCommandC(rootCmd, "rsdp",
			"--image", "/images/supplied.img@0x8000",
			"--region", "0x8000:0xffffffffffff",
		)
		Expect(err).To(HaveOccurred())
		Expect(exitCode(err)).To(Equal(ExitCodeBadConfig))
		Expect(err.Error()).To(ContainSubstring("larger than the loaded memory"))
	})
	It("Errors out on unknown output formats", Label("flags"), func() {
		_, _, err := executeCommandC(rootCmd, "rsdp", "--image", "/images/bios.img@0xe0000", "-o", "json")
		Expect(exitCode(err)).To(Equal(ExitCodeBadConfig))
	})
	It("Reads settings from the environment", func() {
		Expect(os.Setenv("GOPHEROS_RSDP_OUTPUT", "yaml")).To(Succeed())
		defer os.Unsetenv("GOPHEROS_RSDP_OUTPUT")

		_, output, err := executeCommandC(rootCmd, "rsdp", "--image", "/images/bios.img@0xe0000")
		Expect(err).ToNot(HaveOccurred(), errBuf.String())
		Expect(output).To(ContainSubstring("table: RSDT"))
	})
	It("Reads settings from the config dir", func() {
		_, output, err := executeCommandC(rootCmd, "rsdp", "--config-dir", filepath.Join(fs.TempDir(), "conf"))
		Expect(err).ToNot(HaveOccurred(), errBuf.String())
		Expect(output).To(ContainSubstring("table: XSDT"))
	})
	It("Logs debug information", Label("flags"), func() {
		_, _, err := executeCommandC(rootCmd, "rsdp", "--debug", "--image", "/images/bios.img@0xe0000")
		Expect(err).ToNot(HaveOccurred())
		Expect(errBuf.String()).To(ContainSubstring("loaded /images/bios.img (128KiB) at 0xe0000"))
		Expect(errBuf.String()).To(ContainSubstring("scanning 128KiB at 0xe0000 for the RSDP"))
	})
	It("Writes logs to a logfile", Label("flags"), func() {
		_, _, err := executeCommandC(rootCmd, "rsdp", "--quiet", "--logfile", "/rsdp.log", "--image", "/images/bios.img@0xe0000")
		Expect(err).ToNot(HaveOccurred())
		Expect(errBuf.String()).ToNot(ContainSubstring("scanning the BIOS area"))

		data, err := fs.ReadFile("/rsdp.log")
		Expect(err).ToNot(HaveOccurred())
		Expect(string(data)).To(ContainSubstring("scanning the BIOS area"))
	})
})

var _ = Describe("Region", Label("rsdp", "region"), func() {
	It("Parses hexadecimal and decimal regions", func() {
		spec, err := ParseRegionSpec("0x8004:64")
		Expect(err).ToNot(HaveOccurred())
		Expect(spec).To(Equal(RegionSpec{Base: 0x8004, Size: 64}))
		Expect(spec.String()).To(Equal("0x8004:0x40"))
		Expect(spec.Boot().Base).To(BeEquivalentTo(0x8004))
	})
	It("Treats an empty region as unset", func() {
		spec, err := ParseRegionSpec("")
		Expect(err).ToNot(HaveOccurred())
		Expect(spec.IsZero()).To(BeTrue())
		Expect(spec.Boot()).To(BeNil())
	})
	It("Parses image specs", func() {
		path, base, err := parseImageSpec("/tmp/mem@low.img@0xe0000")
		Expect(err).ToNot(HaveOccurred())
		Expect(path).To(Equal("/tmp/mem@low.img"))
		Expect(base).To(BeEquivalentTo(0xe0000))

		path, base, err = parseImageSpec("/tmp/low.img")
		Expect(err).ToNot(HaveOccurred())
		Expect(path).To(Equal("/tmp/low.img"))
		Expect(base).To(BeEquivalentTo(0))

		_, _, err = parseImageSpec("/tmp/low.img@end")
		Expect(err).To(HaveOccurred())
	})
})
