package api

import (
	"fmt"
)

// ConnectivityError reports that the build service could not be reached.
type ConnectivityError struct {
	URL string
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("cannot reach %s: %v", e.URL, e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// ProjectNotFoundError reports a project unknown to the build service. Message is the service's own.
type ProjectNotFoundError struct {
	User    string
	Project string
	Message string
}

func (e *ProjectNotFoundError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("project %s/%s not found", e.User, e.Project)
	}
	return fmt.Sprintf("project %s/%s not found: %s", e.User, e.Project, e.Message)
}

// BuildNotFoundError reports a build id unknown to the build service.
type BuildNotFoundError struct {
	BuildID int
}

func (e *BuildNotFoundError) Error() string {
	return fmt.Sprintf("build %d not found", e.BuildID)
}

// ServiceError reports any other unsuccessful response of the build service.
type ServiceError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("unexpected response from %s: %s", e.URL, e.Status)
}
