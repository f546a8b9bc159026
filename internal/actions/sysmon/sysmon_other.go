//go:build !linux

package sysmon

import "errors"

func sample(path string) (Stats, error) {
	return Stats{}, errors.New("host sampling is only supported on linux")
}
