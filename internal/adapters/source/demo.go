package source

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/agrovolt/fieldsync/internal/domain"
	"github.com/agrovolt/fieldsync/internal/ports"
)

// DemoConfig controls the synthetic field-machine source.
type DemoConfig struct {
	Interval time.Duration `yaml:"interval"`
	// Count limits how many snapshots are produced; 0 means unlimited.
	Count int `yaml:"count"`
}

func (c *DemoConfig) ApplyDefaults() {
	if c.Interval <= 0 {
		c.Interval = 10 * time.Second
	}
}

// Demo simulates a working tractor: engine speed and ground speed follow
// slow sine targets with noise, fuel drains, coolant stabilizes, and the
// GPS position drifts. It lets the whole uplink run without a real bus.
type Demo struct {
	cfg DemoConfig

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	step        int
	engineRPM   float64
	speed       float64
	fuelLevel   float64
	coolantTemp float64
	oilPressure float64
	latitude    float64
	longitude   float64
	heading     float64
	rng         *rand.Rand
}

func NewDemo(cfg DemoConfig) *Demo {
	cfg.ApplyDefaults()
	return &Demo{
		cfg:         cfg,
		engineRPM:   1200,
		fuelLevel:   85,
		coolantTemp: 75,
		oilPressure: 350,
		latitude:    40.7128,
		longitude:   -74.0060,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (d *Demo) Start(out chan<- *domain.Snapshot) error {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return fmt.Errorf("demo source already started")
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.started = true
	d.mu.Unlock()

	d.wg.Add(1)
	go d.run(ctx, out)
	return nil
}

func (d *Demo) Stop() error {
	d.mu.Lock()
	cancel := d.cancel
	d.started = false
	d.cancel = nil
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	d.wg.Wait()
	return nil
}

func (d *Demo) run(ctx context.Context, out chan<- *domain.Snapshot) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	produced := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := d.Generate()
			select {
			case <-ctx.Done():
				return
			case out <- snap:
			}
			produced++
			if d.cfg.Count > 0 && produced >= d.cfg.Count {
				return
			}
		}
	}
}

// Generate produces one snapshot with realistic variation. Exported so the
// demo CLI subcommand can drive it directly without the ticker loop.
func (d *Demo) Generate() *domain.Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.step++

	rpmTarget := 1500 + 300*math.Sin(float64(d.step)*0.1)
	d.engineRPM += (rpmTarget-d.engineRPM)*0.1 + d.rng.Float64()*100 - 50
	d.engineRPM = clamp(d.engineRPM, 800, 2500)

	speedTarget := 15 + 10*math.Sin(float64(d.step)*0.05)
	d.speed += (speedTarget-d.speed)*0.1 + d.rng.Float64()*2 - 1
	d.speed = clamp(d.speed, 0, 30)

	d.fuelLevel -= 0.01 + d.rng.Float64()*0.04
	d.fuelLevel = clamp(d.fuelLevel, 0, 100)

	d.coolantTemp += (85-d.coolantTemp)*0.05 + d.rng.Float64()*1 - 0.5
	d.oilPressure = clamp(d.oilPressure+d.rng.Float64()*10-5, 250, 450)

	// Slow drift across the field at the current speed and heading.
	d.heading += d.rng.Float64()*10 - 5
	d.latitude += d.speed * 1e-6 * math.Cos(d.heading*math.Pi/180)
	d.longitude += d.speed * 1e-6 * math.Sin(d.heading*math.Pi/180)

	return domain.NewSnapshot(map[string]any{
		"EngineSpeed":       round1(d.engineRPM),
		"WheelBasedSpeed":   round1(d.speed),
		"FuelLevel":         round1(d.fuelLevel),
		"EngineCoolantTemp": round1(d.coolantTemp),
		"EngineOilPressure": round1(d.oilPressure),
		"Latitude":          d.latitude,
		"Longitude":         d.longitude,
	})
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

var _ ports.Source = (*Demo)(nil)
