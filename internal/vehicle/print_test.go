package vehicle_test

import (
	"bytes"
	"strings"

	"github.com/SGBon/BMKSA/internal/vehicle"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Print", func() {
	var v *vehicle.Vehicle

	BeforeEach(func() {
		var err error
		v, err = vehicle.New(vehicle.DefaultParams())
		Expect(err).NotTo(HaveOccurred())
	})

	It("writes the spreadsheet line at t = 0", func() {
		var buf bytes.Buffer
		Expect(v.Print(&buf, true)).To(Succeed())
		Expect(buf.String()).To(Equal(
			"0.000000s 0.000000 0.000000 0.000000 0.000000 0.000000 0.000000 0.000000 0.000000 0.000000 557850.000000\n"))
	})

	It("keeps eleven fields after stepping", func() {
		v.Step()
		var buf bytes.Buffer
		Expect(v.Print(&buf, true)).To(Succeed())
		line := buf.String()
		Expect(line).To(HaveSuffix("\n"))
		fields := strings.Fields(line)
		Expect(fields).To(HaveLen(11))
		Expect(fields[0]).To(Equal("0.100000s"))
	})

	It("writes a multi-line report", func() {
		var buf bytes.Buffer
		Expect(v.Print(&buf, false)).To(Succeed())
		out := buf.String()
		Expect(out).To(HavePrefix("T=0.000000s (stage 1, booster):\n"))
		Expect(out).To(ContainSubstring("            1.000000 0.000000 0.000000\n"))
		Expect(out).To(ContainSubstring("  mass: 557850.000000\n"))
		Expect(strings.Count(out, "\n")).To(Equal(10))
	})
})
