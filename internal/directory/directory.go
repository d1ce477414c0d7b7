// Package directory holds the static property → lock topology. Entries are
// read from a YAML file maintained by hand; a zero lock id means the door has
// no smart lock fitted yet.
package directory

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownProperty = errors.New("property not in lock directory")
	ErrUnknownRoom     = errors.New("room not in lock directory")
)

type Property struct {
	FrontDoorLockID int64            `yaml:"front_door_lock_id"`
	Rooms           map[string]int64 `yaml:"rooms"`
}

type Directory struct {
	Properties map[string]Property `yaml:"properties"`
}

func Load(path string) (*Directory, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

func Parse(b []byte) (*Directory, error) {
	var d Directory
	if err := yaml.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("lock directory: %w", err)
	}
	if len(d.Properties) == 0 {
		return nil, fmt.Errorf("lock directory: no properties defined")
	}
	return &d, nil
}

func (d *Directory) Property(name string) (Property, bool) {
	p, ok := d.Properties[name]
	return p, ok
}

// FrontDoorLock returns the front door lock id for a property, or 0 if the
// property has no front door lock configured.
func (d *Directory) FrontDoorLock(property string) (int64, error) {
	p, ok := d.Properties[property]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownProperty, property)
	}
	return p.FrontDoorLockID, nil
}

// RoomLock returns the lock id for a room. A room missing from a known
// property's map is a configuration gap and reported as ErrUnknownRoom;
// a present-but-zero id means "no lock fitted" and is returned as 0, nil.
func (d *Directory) RoomLock(property, room string) (int64, error) {
	p, ok := d.Properties[property]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownProperty, property)
	}
	id, ok := p.Rooms[room]
	if !ok {
		return 0, fmt.Errorf("%w: %q / %q", ErrUnknownRoom, property, room)
	}
	return id, nil
}
