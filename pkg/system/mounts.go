package system

import (
	"bufio"
	"bytes"
	"path/filepath"
	"strings"

	"github.com/choopsit/toolz/pkg/errors"
	"github.com/choopsit/toolz/pkg/types"
)

// MountsPath is the kernel mount table
const MountsPath = "/proc/mounts"

// Mount is one line of the mount table
type Mount struct {
	Device  string
	Point   string
	FSType  string
	Options string
}

// ReadMounts parses the mount table
func ReadMounts(fsys types.FS) ([]Mount, error) {
	data, err := fsys.ReadFile(MountsPath)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "cannot read %s", MountsPath)
	}
	return ParseMounts(data), nil
}

// ParseMounts parses /proc/mounts content. Octal escapes such as \040 in
// mount points are decoded.
func ParseMounts(data []byte) []Mount {
	var mounts []Mount
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 {
			continue
		}
		mounts = append(mounts, Mount{
			Device:  fields[0],
			Point:   unescapeMount(fields[1]),
			FSType:  fields[2],
			Options: fields[3],
		})
	}
	return mounts
}

var mountEscapes = strings.NewReplacer(`\040`, " ", `\011`, "\t", `\012`, "\n", `\134`, `\`)

func unescapeMount(s string) string {
	return mountEscapes.Replace(s)
}

// IsMountPoint reports whether path is mounted
func IsMountPoint(fsys types.FS, path string) (bool, error) {
	mounts, err := ReadMounts(fsys)
	if err != nil {
		return false, err
	}
	clean := filepath.Clean(path)
	for _, m := range mounts {
		if m.Point == clean {
			return true, nil
		}
	}
	return false, nil
}

// DeviceMounted reports whether dev or one of its partitions is mounted
func DeviceMounted(fsys types.FS, dev string) (bool, error) {
	mounts, err := ReadMounts(fsys)
	if err != nil {
		return false, err
	}
	for _, m := range mounts {
		if strings.HasPrefix(m.Device, dev) {
			return true, nil
		}
	}
	return false, nil
}
