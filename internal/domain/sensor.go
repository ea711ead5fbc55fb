package domain

import "fmt"

// Sensor identifies a supported sensor family. The set is closed: anything
// a source cannot match against this enumeration is a configuration error
// at construction time, never a per-pixel concern.
type Sensor uint8

const (
	SensorUnknown Sensor = iota
	SensorMERISRR        // MERIS reduced resolution (the plain "MERIS" alias)
	SensorMERISFR        // MERIS full resolution
	SensorMODIS
	SensorSeaWiFS
	SensorVIIRS
)

// Capabilities describes what a sensor family provides and which auxiliary
// reference tables its sources need. It is resolved once per source at
// construction.
type Capabilities struct {
	Name  string
	Bands []int // default nominal band set, nm

	// SmileCorrection is true when the sensor has a documented
	// detector-dependent wavelength effect. WavelengthFile and SmileFluxFile
	// name the detector-indexed tables in the auxiliary data directory.
	SmileCorrection bool
	WavelengthFile  string
	SmileFluxFile   string

	// SolarFluxFile names the nominal band to solar flux table used when
	// SmileCorrection is false.
	SolarFluxFile string
}

// Default nominal band sets, matching the bands stored in operational
// Level1 products and extractions.
var (
	bandsMERIS   = []int{412, 443, 490, 510, 560, 620, 665, 681, 709, 754, 760, 779, 865, 885, 900}
	bandsMODIS   = []int{412, 443, 469, 488, 531, 547, 555, 645, 667, 678, 748, 858, 869, 1240}
	bandsSeaWiFS = []int{412, 443, 490, 510, 555, 670, 765, 865}
	bandsVIIRS   = []int{410, 443, 486, 551, 671, 745, 862, 1238, 1601, 2257}
)

// ParseSensor maps a sensor identifier string to its enum value.
// "MERIS" and "MERIS_RR" are synonyms.
func ParseSensor(name string) (Sensor, error) {
	switch name {
	case "MERIS", "MERIS_RR":
		return SensorMERISRR, nil
	case "MERIS_FR":
		return SensorMERISFR, nil
	case "MODIS":
		return SensorMODIS, nil
	case "SeaWiFS":
		return SensorSeaWiFS, nil
	case "VIIRS":
		return SensorVIIRS, nil
	default:
		return SensorUnknown, fmt.Errorf("unknown sensor %q", name)
	}
}

// Capabilities returns the static capability record for the sensor.
func (s Sensor) Capabilities() Capabilities {
	switch s {
	case SensorMERISRR:
		return Capabilities{
			Name:            "MERIS_RR",
			Bands:           bandsMERIS,
			SmileCorrection: true,
			WavelengthFile:  "central_wavelen_rr.txt",
			SmileFluxFile:   "sun_spectral_flux_rr.txt",
		}
	case SensorMERISFR:
		return Capabilities{
			Name:            "MERIS_FR",
			Bands:           bandsMERIS,
			SmileCorrection: true,
			WavelengthFile:  "central_wavelen_fr.txt",
			SmileFluxFile:   "sun_spectral_flux_fr.txt",
		}
	case SensorMODIS:
		return Capabilities{Name: "MODIS", Bands: bandsMODIS, SolarFluxFile: "solar_flux_modis.txt"}
	case SensorSeaWiFS:
		return Capabilities{Name: "SeaWiFS", Bands: bandsSeaWiFS, SolarFluxFile: "solar_flux_seawifs.txt"}
	case SensorVIIRS:
		return Capabilities{Name: "VIIRS", Bands: bandsVIIRS, SolarFluxFile: "solar_flux_viirs.txt"}
	default:
		return Capabilities{Name: "unknown"}
	}
}

func (s Sensor) String() string { return s.Capabilities().Name }
