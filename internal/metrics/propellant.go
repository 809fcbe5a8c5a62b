package metrics

import "github.com/SGBon/BMKSA/internal/dynamo"

// PropellantUsed sums mass burned, in kg. Drops at staging are jettisoned
// hardware and do not count.
type PropellantUsed struct {
	name    string
	burned  float64
	last    dynamo.Sample
	samples int
}

func NewPropellantUsed() *PropellantUsed {
	return &PropellantUsed{name: "propellant_used"}
}

func (p *PropellantUsed) Name() string { return p.name }

func (p *PropellantUsed) Observe(s dynamo.Sample) {
	if p.samples > 0 && s.Stage == p.last.Stage && s.Mass < p.last.Mass {
		p.burned += p.last.Mass - s.Mass
	}
	p.last = s
	p.samples++
}

func (p *PropellantUsed) Value() float64 { return p.burned }

func (p *PropellantUsed) Reset() {
	p.burned = 0
	p.last = dynamo.Sample{}
	p.samples = 0
}
