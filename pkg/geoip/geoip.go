// Package geoip wraps a local MaxMind GeoLite2/GeoIP2 database.
package geoip

import (
	"errors"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// ErrInvalidIP is returned for addresses that do not parse.
var ErrInvalidIP = errors.New("invalid ip address")

// Service answers country lookups from a GeoLite2-Country or GeoLite2-City
// database file.
type Service struct {
	reader *geoip2.Reader
}

// NewService opens the .mmdb file at dbPath.
func NewService(dbPath string) (*Service, error) {
	reader, err := geoip2.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open geoip database: %w", err)
	}
	return &Service{reader: reader}, nil
}

// Close releases the database.
func (s *Service) Close() error {
	if s == nil || s.reader == nil {
		return nil
	}
	return s.reader.Close()
}

// CountryCode returns the ISO country code recorded for ipAddress. An empty
// code with a nil error means the database has no entry for the address.
func (s *Service) CountryCode(ipAddress string) (string, error) {
	ip := net.ParseIP(ipAddress)
	if ip == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidIP, ipAddress)
	}

	// Country works on both Country and City databases.
	record, err := s.reader.Country(ip)
	if err != nil {
		return "", fmt.Errorf("geoip lookup: %w", err)
	}

	return record.Country.IsoCode, nil
}
