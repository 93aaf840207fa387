package run_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/pkg/errors"

	"github.com/coprcheck/coprcheck/pkg/check/rpmgrill"
	"github.com/coprcheck/coprcheck/pkg/copr/api"
	"github.com/coprcheck/coprcheck/pkg/db/show"
	"github.com/coprcheck/coprcheck/pkg/fetch"
	"github.com/coprcheck/coprcheck/pkg/run"
	"github.com/coprcheck/coprcheck/pkg/types"
	"github.com/coprcheck/coprcheck/pkg/util/exec"
)

func TestMain(m *testing.M) {
	text.DisableColors()
	m.Run()
}

type fakeSource struct {
	t       *testing.T
	monitor *api.Monitor
	err     error
	builds  map[int]*api.BuildDetail
}

func (s *fakeSource) Monitor(_ context.Context, user, project string) (*api.Monitor, error) {
	if s.monitor == nil && s.err == nil {
		s.t.Errorf("unexpected monitor request for %s/%s", user, project)
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.monitor, nil
}

func (s *fakeSource) Build(_ context.Context, buildID int) (*api.BuildDetail, error) {
	d, ok := s.builds[buildID]
	if !ok {
		return nil, &api.BuildNotFoundError{BuildID: buildID}
	}
	return d, nil
}

func newSource(t *testing.T) *fakeSource {
	return &fakeSource{
		t: t,
		monitor: &api.Monitor{Output: "ok", Packages: []api.Package{{
			Name: "foo",
			Results: api.ChrootResults{
				{Chroot: "fedora-30-x86_64", Result: &api.Result{BuildID: 7, Status: "succeeded"}},
				{Chroot: "epel-8-x86_64", Result: &api.Result{BuildID: 7, Status: "succeeded"}},
			},
		}}},
		builds: map[int]*api.BuildDetail{
			7: {Tasks: []*api.Task{
				{BuildTask: &api.BuildTask{BuildID: 7, ChrootName: "fedora-30-x86_64", State: "succeeded", ResultDirURL: "https://copr.example.com/results/user/proj/fedora-30-x86_64/00000007-foo/"}},
				{BuildTask: &api.BuildTask{BuildID: 7, ChrootName: "epel-8-x86_64", State: "succeeded", ResultDirURL: "https://copr.example.com/results/user/proj/epel-8-x86_64/00000007-foo/"}},
			}},
		},
	}
}

// fakeRunner stands in for wget and the rpmgrill tools.
type fakeRunner struct {
	failURL string

	mu    sync.Mutex
	calls []string
}

func (r *fakeRunner) Run(_ context.Context, name string, args ...string) error {
	r.mu.Lock()
	r.calls = append(r.calls, name)
	r.mu.Unlock()

	switch name {
	case fetch.Binary:
		u := args[len(args)-1]
		if u == r.failURL {
			return errors.WithStack(&exec.ToolError{Args: append([]string{name}, args...), ExitCode: 8})
		}
		var prefix string
		for _, a := range args {
			if p, ok := strings.CutPrefix(a, "--directory-prefix="); ok {
				prefix = p
			}
		}
		seg := path.Base(strings.TrimSuffix(u, "/"))
		return writeFile(filepath.Join(prefix, seg, seg+".rpm"), "")
	case rpmgrill.UnpackBinary:
		return os.MkdirAll(filepath.Join(args[0], "unpacked"), 0755)
	case rpmgrill.Binary:
		build := filepath.Dir(args[0])
		results := `[{"code": "E1", "diag": "bad rpath"}]`
		if strings.Contains(build, "clean") {
			results = `[]`
		}
		return writeFile(filepath.Join(args[0], "rpmgrill.json"), fmt.Sprintf(`{
			"package": {"name": %q, "version": "1.0", "release": %q},
			"tests": [{"module": "rpaths", "results": %s}]
		}`, filepath.Base(build), filepath.Base(filepath.Dir(build)), results))
	default:
		return errors.Errorf("unexpected command %s", name)
	}
}

func (r *fakeRunner) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, c := range r.calls {
		if c == name {
			n++
		}
	}
	return n
}

// installTools puts placeholder executables on PATH so the binary checks pass.
func installTools(t *testing.T) {
	t.Helper()

	bin := t.TempDir()
	for _, b := range []string{fetch.Binary, rpmgrill.UnpackBinary, rpmgrill.Binary} {
		if err := os.WriteFile(filepath.Join(bin, b), []byte("#!/bin/sh\nexit 1\n"), 0755); err != nil {
			t.Fatalf("write %s. error = %v", b, err)
		}
	}
	t.Setenv("PATH", bin)
}

func writeFile(name, content string) error {
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return err
	}
	return os.WriteFile(name, []byte(content), 0644)
}

func TestRun(t *testing.T) {
	installTools(t)

	dir := t.TempDir()
	target := filepath.Join(dir, "user-proj")
	reportPath := filepath.Join(dir, "user-proj.yml")
	dbpath := filepath.Join(dir, "coprcheck.db")

	runner := &fakeRunner{}
	var stdout, stderr bytes.Buffer
	got, err := run.Run(context.Background(), "user", "proj",
		run.WithSource(newSource(t)),
		run.WithRunner(runner),
		run.WithTarget(target),
		run.WithReport(reportPath),
		run.WithDBPath(dbpath),
		run.WithStdout(&stdout),
		run.WithStderr(&stderr),
	)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := &types.Report{Packages: []types.Package{
		{NVR: "00000007-foo-1.0-epel-8", Checks: []types.Check{{Name: "rpaths", Codes: []types.Code{{Code: "E1", Messages: []string{"bad rpath"}}}}}},
		{NVR: "00000007-foo-1.0-fedora-30", Checks: []types.Check{{Name: "rpaths", Codes: []types.Code{{Code: "E1", Messages: []string{"bad rpath"}}}}}},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Run(). (-expected +got):\n%s", diff)
	}

	if n := runner.count(fetch.Binary); n != 2 {
		t.Errorf("wget calls = %d, want 2", n)
	}
	for _, s := range []string{"Running discovery...\t[ OK ]\n", "Running rpmgrill...\t[ OK ]\n"} {
		if !strings.Contains(stderr.String(), s) {
			t.Errorf("stderr does not contain %q:\n%s", s, stderr.String())
		}
	}
	if !strings.HasPrefix(stdout.String(), "Failed packages:\n00000007-foo-1.0-epel-8:\n") {
		t.Errorf("unexpected failure summary:\n%s", stdout.String())
	}

	bs, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("read report. error = %v", err)
	}
	wantReport := "00000007-foo-1.0-epel-8:\n  rpaths:\n    E1:\n      - bad rpath\n00000007-foo-1.0-fedora-30:\n  rpaths:\n    E1:\n      - bad rpath\n"
	if diff := cmp.Diff(wantReport, string(bs)); diff != "" {
		t.Errorf("report file. (-expected +got):\n%s", diff)
	}

	var stored bytes.Buffer
	if err := show.Show("user/proj", show.WithDBPath(dbpath), show.WithWriter(&stored)); err != nil {
		t.Fatalf("show stored run. error = %v", err)
	}
	for _, s := range []string{"project: user/proj", "build_id: 7", "chroot: epel-8-x86_64"} {
		if !strings.Contains(stored.String(), s) {
			t.Errorf("stored run does not contain %q:\n%s", s, stored.String())
		}
	}
}

func TestRun_NoSucceededBuilds(t *testing.T) {
	installTools(t)

	dir := t.TempDir()
	reportPath := filepath.Join(dir, "user-proj.yml")
	src := &fakeSource{t: t, monitor: &api.Monitor{Output: "ok", Packages: []api.Package{{
		Name: "foo",
		Results: api.ChrootResults{
			{Chroot: "fedora-30-x86_64", Result: &api.Result{BuildID: 7, Status: "failed"}},
			{Chroot: "epel-8-x86_64", Result: nil},
		},
	}}}}

	runner := &fakeRunner{}
	var stdout, stderr bytes.Buffer
	got, err := run.Run(context.Background(), "user", "proj",
		run.WithSource(src),
		run.WithRunner(runner),
		run.WithTarget(filepath.Join(dir, "user-proj")),
		run.WithReport(reportPath),
		run.WithDBPath(filepath.Join(dir, "coprcheck.db")),
		run.WithStdout(&stdout),
		run.WithStderr(&stderr),
	)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if diff := cmp.Diff(&types.Report{}, got); diff != "" {
		t.Errorf("Run(). (-expected +got):\n%s", diff)
	}
	if len(runner.calls) != 0 {
		t.Errorf("runner calls = %q, want none", runner.calls)
	}
	if !strings.Contains(stderr.String(), "Running rpmgrill...\t[ OK ]\n") {
		t.Errorf("stderr does not report a passed scan:\n%s", stderr.String())
	}
	if stdout.Len() != 0 {
		t.Errorf("unexpected failure summary:\n%s", stdout.String())
	}

	bs, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("read report. error = %v", err)
	}
	if diff := cmp.Diff("{}\n", string(bs)); diff != "" {
		t.Errorf("report file. (-expected +got):\n%s", diff)
	}
}

func TestRun_NoChecks(t *testing.T) {
	installTools(t)

	dir := t.TempDir()
	runner := &fakeRunner{}
	got, err := run.Run(context.Background(), "user", "proj",
		run.WithSource(newSource(t)),
		run.WithRunner(runner),
		run.WithTarget(filepath.Join(dir, "target")),
		run.WithReport(filepath.Join(dir, "report.yml")),
		run.WithNoChecks(true),
		run.WithQuiet(true),
	)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got != nil {
		t.Errorf("Run() = %v, want no report", got)
	}
	if n := runner.count(fetch.Binary); n != 2 {
		t.Errorf("wget calls = %d, want 2", n)
	}
	if n := runner.count(rpmgrill.Binary); n != 0 {
		t.Errorf("rpmgrill calls = %d, want 0", n)
	}
	if _, err := os.Stat(filepath.Join(dir, "target", "fedora-30", "00000007-foo", "00000007-foo.rpm")); err != nil {
		t.Errorf("downloaded package is missing. error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "report.yml")); !os.IsNotExist(err) {
		t.Errorf("report was written. stat error = %v", err)
	}
}

func TestRun_NoDownload(t *testing.T) {
	installTools(t)

	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	if err := writeFile(filepath.Join(target, "fedora-30", "00000009-clean", "clean-1-1.fc30.x86_64.rpm"), ""); err != nil {
		t.Fatalf("prepare target. error = %v", err)
	}

	runner := &fakeRunner{}
	var stdout, stderr bytes.Buffer
	got, err := run.Run(context.Background(), "user", "proj",
		run.WithSource(&fakeSource{t: t}),
		run.WithRunner(runner),
		run.WithTarget(target),
		run.WithReport(filepath.Join(dir, "report.json")),
		run.WithNoDownload(true),
		run.WithNoStore(true),
		run.WithQuiet(true),
		run.WithStdout(&stdout),
		run.WithStderr(&stderr),
	)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := &types.Report{Packages: []types.Package{{NVR: "00000009-clean-1.0-fedora-30", Checks: []types.Check{}}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Run(). (-expected +got):\n%s", diff)
	}
	if n := runner.count(fetch.Binary); n != 0 {
		t.Errorf("wget calls = %d, want 0", n)
	}
	if stdout.Len() != 0 || stderr.Len() != 0 {
		t.Errorf("quiet run printed. stdout: %q, stderr: %q", stdout.String(), stderr.String())
	}

	bs, err := os.ReadFile(filepath.Join(dir, "report.json"))
	if err != nil {
		t.Fatalf("read report. error = %v", err)
	}
	if diff := cmp.Diff("{\n  \"00000009-clean-1.0-fedora-30\": {}\n}\n", string(bs)); diff != "" {
		t.Errorf("report file. (-expected +got):\n%s", diff)
	}
}

func TestRun_DownloadFailure(t *testing.T) {
	installTools(t)

	dir := t.TempDir()
	runner := &fakeRunner{failURL: "https://copr.example.com/results/user/proj/fedora-30-x86_64/00000007-foo/"}
	var stderr bytes.Buffer
	_, err := run.Run(context.Background(), "user", "proj",
		run.WithSource(newSource(t)),
		run.WithRunner(runner),
		run.WithTarget(filepath.Join(dir, "target")),
		run.WithReport(filepath.Join(dir, "report.yml")),
		run.WithStderr(&stderr),
	)

	var te *exec.ToolError
	if !errors.As(err, &te) {
		t.Fatalf("Run() error = %v, want %T", err, te)
	}
	if n := runner.count(fetch.Binary); n != 2 {
		t.Errorf("wget calls = %d, want every artifact attempted", n)
	}
	if n := runner.count(rpmgrill.UnpackBinary); n != 0 {
		t.Errorf("unpack calls = %d, want 0", n)
	}
	if _, err := os.Stat(filepath.Join(dir, "report.yml")); !os.IsNotExist(err) {
		t.Errorf("report was written. stat error = %v", err)
	}
}

func TestRun_ProjectNotFound(t *testing.T) {
	installTools(t)

	dir := t.TempDir()
	runner := &fakeRunner{}
	var stderr bytes.Buffer
	_, err := run.Run(context.Background(), "user", "missing",
		run.WithSource(&fakeSource{t: t, err: &api.ProjectNotFoundError{User: "user", Project: "missing", Message: "Project missing does not exist."}}),
		run.WithRunner(runner),
		run.WithTarget(filepath.Join(dir, "target")),
		run.WithReport(filepath.Join(dir, "report.yml")),
		run.WithStderr(&stderr),
	)

	var pe *api.ProjectNotFoundError
	if !errors.As(err, &pe) {
		t.Fatalf("Run() error = %v, want %T", err, pe)
	}
	if len(runner.calls) != 0 {
		t.Errorf("runner calls = %q, want none", runner.calls)
	}
	if !strings.Contains(stderr.String(), "Running discovery...\t[FAIL]\n") {
		t.Errorf("stderr does not report the failed discovery:\n%s", stderr.String())
	}
}

func TestRun_MissingTool(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	dir := t.TempDir()
	_, err := run.Run(context.Background(), "user", "proj",
		run.WithSource(newSource(t)),
		run.WithRunner(&fakeRunner{}),
		run.WithTarget(filepath.Join(dir, "target")),
		run.WithReport(filepath.Join(dir, "report.yml")),
		run.WithQuiet(true),
	)

	var me *exec.MissingBinaryError
	if !errors.As(err, &me) {
		t.Fatalf("Run() error = %v, want %T", err, me)
	}
	if me.Binary != fetch.Binary {
		t.Errorf("missing binary = %q, want %q", me.Binary, fetch.Binary)
	}
}
