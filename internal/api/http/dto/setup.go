package dto

import (
	"time"

	"github.com/vistalink/screen-setup/internal/sysinfo"
)

type HealthResponse struct {
	Status string `json:"status"`
}

type ConnectRequest struct {
	SSID     string `json:"ssid" binding:"required"`
	Password string `json:"password"`
}

type ConnectResponse struct {
	Message string `json:"message"`
}

type StatusResponse struct {
	Active    bool               `json:"active"`
	State     string             `json:"state"`
	Message   string             `json:"message,omitempty"`
	Attempt   int                `json:"attempt"`
	Network   string             `json:"network,omitempty"`
	LastError *FlowErrorResponse `json:"last_error,omitempty"`
	Warnings  []string           `json:"warnings,omitempty"`
	StartedAt *time.Time         `json:"started_at,omitempty"`
	UpdatedAt *time.Time         `json:"updated_at,omitempty"`
	System    *sysinfo.Snapshot  `json:"system,omitempty"`
}

type FlowErrorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

type NetworkResponse struct {
	SSID      string `json:"ssid"`
	Quality   int    `json:"quality"`
	Encrypted bool   `json:"encrypted"`
}

type ListNetworksResponse struct {
	Networks []NetworkResponse `json:"networks"`
}

type JoinQRResponse struct {
	SSID     string `json:"ssid"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

type StringsResponse struct {
	Language string            `json:"language"`
	Strings  map[string]string `json:"strings"`
}
