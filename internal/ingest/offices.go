package ingest

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/coverage-cli/internal/geo"
	"github.com/sells-group/coverage-cli/internal/model"
)

// OfficeEntry is one office in a YAML office list. Either Coordinates
// ("lat,lon") or both Lat and Lon must be set.
type OfficeEntry struct {
	Name        string   `yaml:"name"`
	Coordinates string   `yaml:"coordinates"`
	Lat         *float64 `yaml:"lat"`
	Lon         *float64 `yaml:"lon"`
}

type officeFile struct {
	Offices []OfficeEntry `yaml:"offices"`
}

// ParseOffices decodes a YAML document of the form:
//
//	offices:
//	  - name: Delhi HQ
//	    coordinates: "28.6139, 77.2090"
//	  - name: Mumbai
//	    lat: 19.0760
//	    lon: 72.8777
//
// IDs are assigned from the list position so offline runs are reproducible.
func ParseOffices(r io.Reader) ([]model.Office, error) {
	var f officeFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return []model.Office{}, nil
		}
		return nil, eris.Wrap(err, "ingest: decode offices")
	}

	offices := make([]model.Office, 0, len(f.Offices))
	for i, e := range f.Offices {
		o, err := e.Office()
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: office %d", i+1)
		}
		o.ID = "office-" + strconv.Itoa(i+1)
		offices = append(offices, o)
	}
	return offices, nil
}

// Office validates the entry and converts it to a model.Office.
func (e OfficeEntry) Office() (model.Office, error) {
	name := strings.TrimSpace(e.Name)
	if name == "" {
		return model.Office{}, eris.New("office name is required")
	}

	var loc geo.Point
	switch {
	case e.Coordinates != "":
		p, err := geo.ParseCoordinates(e.Coordinates)
		if err != nil {
			return model.Office{}, err
		}
		loc = p
	case e.Lat != nil && e.Lon != nil:
		loc = geo.Point{Lat: *e.Lat, Lon: *e.Lon}
		if err := geo.ValidatePoint(loc); err != nil {
			return model.Office{}, err
		}
	default:
		return model.Office{}, eris.Errorf("office %q has no coordinates", name)
	}

	return model.Office{Name: name, Location: loc}, nil
}

// ReadOfficesFile parses a YAML office list from path.
func ReadOfficesFile(path string) ([]model.Office, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open %s", path)
	}
	defer f.Close()

	return ParseOffices(f)
}
