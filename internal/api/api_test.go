package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/scratchpad/internal/models"
	"github.com/starford/scratchpad/internal/runlog"
	"github.com/starford/scratchpad/internal/sse"
	"github.com/starford/scratchpad/internal/testutil"
	"github.com/starford/scratchpad/internal/workspace"
)

type testEnv struct {
	store  *workspace.Store
	runs   *runlog.DB
	broker *sse.Broker
	router http.Handler
}

// newTestEnv wires a store, an in-process executor, a run log and the router.
// endpoint, when set, sends workspace runs there instead.
func newTestEnv(t *testing.T, endpoint string) *testEnv {
	t.Helper()
	db := testutil.TestRunLog(t)
	broker := sse.NewBroker(time.Second)
	t.Cleanup(broker.Close)

	store := workspace.NewStore(time.Hour, 4, broker.PublishNodeEvent)
	h := NewHandler(Deps{
		Store:    store,
		Executor: testutil.TestExecutor(t, db),
		Runs:     db,
		Broker:   broker,
		Endpoint: endpoint,
		Logger:   testutil.Logger(),
	})

	r := chi.NewRouter()
	r.Mount("/api", NewRouter(h))
	r.Post("/lang/{language}/{version}", h.Exec)
	return &testEnv{store: store, runs: db, broker: broker, router: r}
}

func (e *testEnv) do(t *testing.T, method, target string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, rd)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) newWorkspace(t *testing.T, initial string) WorkspaceResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/workspaces", CreateWorkspaceRequest{InitialFile: initial})
	if w.Code != http.StatusCreated {
		t.Fatalf("create workspace status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp WorkspaceResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestCreateAndGetWorkspace(t *testing.T) {
	env := newTestEnv(t, "")
	ws := env.newWorkspace(t, "main.go")
	if ws.ID == "" || ws.Active != "main.go" {
		t.Fatalf("workspace = %+v", ws)
	}

	w := env.do(t, http.MethodGet, "/api/workspaces/"+ws.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var got WorkspaceResponse
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if len(got.Tree.Children) != 1 || got.Tree.Children[0].Mode != "Go" {
		t.Errorf("tree = %+v", got.Tree)
	}
}

func TestCreateWorkspace_EmptyBody(t *testing.T) {
	env := newTestEnv(t, "")
	req := httptest.NewRequest(http.MethodPost, "/api/workspaces", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestCreateWorkspace_Limit(t *testing.T) {
	env := newTestEnv(t, "")
	for i := 0; i < 4; i++ {
		env.newWorkspace(t, "")
	}
	w := env.do(t, http.MethodPost, "/api/workspaces", CreateWorkspaceRequest{})
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", w.Code)
	}
}

func TestGetWorkspace_NotFound(t *testing.T) {
	env := newTestEnv(t, "")
	w := env.do(t, http.MethodGet, "/api/workspaces/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestDeleteWorkspace(t *testing.T) {
	env := newTestEnv(t, "")
	ws := env.newWorkspace(t, "")

	w := env.do(t, http.MethodDelete, "/api/workspaces/"+ws.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	w = env.do(t, http.MethodGet, "/api/workspaces/"+ws.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("after delete status = %d, want 404", w.Code)
	}
}

func TestCreateNodes(t *testing.T) {
	env := newTestEnv(t, "")
	ws := env.newWorkspace(t, "")
	base := "/api/workspaces/" + ws.ID

	w := env.do(t, http.MethodPost, base+"/nodes", CreateNodeRequest{Name: "src/"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create dir status = %d, body = %s", w.Code, w.Body.String())
	}
	var node NodeResponse
	_ = json.Unmarshal(w.Body.Bytes(), &node)
	if node.Path != "src" || node.Kind != workspace.KindDir {
		t.Errorf("dir node = %+v", node)
	}

	w = env.do(t, http.MethodPost, base+"/nodes", CreateNodeRequest{Parent: "src", Name: "main.go"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create file status = %d", w.Code)
	}
	_ = json.Unmarshal(w.Body.Bytes(), &node)
	if node.Path != "src/main.go" || node.Kind != workspace.KindFile {
		t.Errorf("file node = %+v", node)
	}

	// Duplicate sibling.
	w = env.do(t, http.MethodPost, base+"/nodes", CreateNodeRequest{Parent: "src", Name: "main.go"})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d, want 409", w.Code)
	}
	// Missing parent.
	w = env.do(t, http.MethodPost, base+"/nodes", CreateNodeRequest{Parent: "nope", Name: "x.go"})
	if w.Code != http.StatusNotFound {
		t.Errorf("missing parent status = %d, want 404", w.Code)
	}
	// Empty name.
	w = env.do(t, http.MethodPost, base+"/nodes", CreateNodeRequest{Name: ""})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty name status = %d, want 400", w.Code)
	}
}

func TestDeleteNode_DirectoryNeedsConfirm(t *testing.T) {
	env := newTestEnv(t, "")
	ws := env.newWorkspace(t, "")
	base := "/api/workspaces/" + ws.ID
	_ = env.do(t, http.MethodPost, base+"/nodes", CreateNodeRequest{Name: "lib/"})
	_ = env.do(t, http.MethodPost, base+"/nodes", CreateNodeRequest{Parent: "lib", Name: "a.py"})

	w := env.do(t, http.MethodDelete, base+"/nodes/lib", nil)
	if w.Code != http.StatusPreconditionRequired {
		t.Fatalf("unconfirmed status = %d, want 428", w.Code)
	}

	w = env.do(t, http.MethodDelete, base+"/nodes/lib?confirm=true", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("confirmed status = %d, body = %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, base+"/files/lib/a.py", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("descendant buffer still selectable: %d", w.Code)
	}
}

func TestDeleteNode_Root(t *testing.T) {
	env := newTestEnv(t, "")
	ws := env.newWorkspace(t, "")
	w := env.do(t, http.MethodDelete, "/api/workspaces/"+ws.ID+"/nodes/", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("root delete status = %d, want 400", w.Code)
	}
}

func TestSelectAndWriteFile(t *testing.T) {
	env := newTestEnv(t, "")
	ws := env.newWorkspace(t, "app.py")
	base := "/api/workspaces/" + ws.ID

	w := env.do(t, http.MethodGet, base+"/files/app.py", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("select status = %d", w.Code)
	}
	var view workspace.View
	_ = json.Unmarshal(w.Body.Bytes(), &view)
	if view.Mode.Name != "Python" || view.Content != "" {
		t.Errorf("view = %+v", view)
	}
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}

	content := "print('hi')\n"
	w = env.do(t, http.MethodPut, base+"/files/app.py", WriteFileRequest{Content: &content}, "If-Match", etag)
	if w.Code != http.StatusOK {
		t.Fatalf("write status = %d, body = %s", w.Code, w.Body.String())
	}

	// Stale checksum.
	other := "print('bye')\n"
	w = env.do(t, http.MethodPut, base+"/files/app.py", WriteFileRequest{Content: &other}, "If-Match", etag)
	if w.Code != http.StatusConflict {
		t.Errorf("stale write status = %d, want 409", w.Code)
	}

	// No precondition.
	w = env.do(t, http.MethodPut, base+"/files/app.py", WriteFileRequest{Content: &other})
	if w.Code != http.StatusOK {
		t.Errorf("unconditional write status = %d", w.Code)
	}

	// Missing content field.
	w = env.do(t, http.MethodPut, base+"/files/app.py", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing content status = %d, want 400", w.Code)
	}
}

func TestSelectFile_UnknownExtension(t *testing.T) {
	env := newTestEnv(t, "")
	ws := env.newWorkspace(t, "notes.zzz")
	w := env.do(t, http.MethodGet, "/api/workspaces/"+ws.ID+"/files/notes.zzz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var view workspace.View
	_ = json.Unmarshal(w.Body.Bytes(), &view)
	if view.Mode.Name != "" {
		t.Errorf("mode = %+v, want empty", view.Mode)
	}
}

func TestSelectFile_Directory(t *testing.T) {
	env := newTestEnv(t, "")
	ws := env.newWorkspace(t, "")
	base := "/api/workspaces/" + ws.ID
	_ = env.do(t, http.MethodPost, base+"/nodes", CreateNodeRequest{Name: "pkg/"})
	w := env.do(t, http.MethodGet, base+"/files/pkg", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSnapshotOrder(t *testing.T) {
	env := newTestEnv(t, "")
	ws := env.newWorkspace(t, "")
	base := "/api/workspaces/" + ws.ID
	_ = env.do(t, http.MethodPost, base+"/nodes", CreateNodeRequest{Name: "b.txt"})
	_ = env.do(t, http.MethodPost, base+"/nodes", CreateNodeRequest{Name: "dir/"})
	_ = env.do(t, http.MethodPost, base+"/nodes", CreateNodeRequest{Parent: "dir", Name: "c.txt"})
	_ = env.do(t, http.MethodPost, base+"/nodes", CreateNodeRequest{Name: "a.txt"})

	w := env.do(t, http.MethodGet, base+"/snapshot", nil)
	var snap SnapshotResponse
	_ = json.Unmarshal(w.Body.Bytes(), &snap)
	var names []string
	for _, f := range snap.Files {
		names = append(names, f.Name)
	}
	if got := strings.Join(names, ","); got != "b.txt,dir/c.txt,a.txt" {
		t.Errorf("snapshot order = %s", got)
	}
}

func TestRunWorkspace_Local(t *testing.T) {
	env := newTestEnv(t, "")
	ws := env.newWorkspace(t, "greet.sh")
	base := "/api/workspaces/" + ws.ID
	script := "echo hello from $LANGUAGE"
	_ = env.do(t, http.MethodPut, base+"/files/greet.sh", WriteFileRequest{Content: &script})

	w := env.do(t, http.MethodPost, base+"/run", RunRequest{Cmd: "sh greet.sh", Language: "bash"})
	if w.Code != http.StatusOK {
		t.Fatalf("run status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := w.Body.String(); got != "hello from bash\n" {
		t.Errorf("output = %q", got)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content-type = %q", ct)
	}

	w = env.do(t, http.MethodGet, base+"/runs", nil)
	var list RunListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Runs) != 1 || list.Runs[0].Cmd != "sh greet.sh" || list.Runs[0].FileCount != 1 {
		t.Errorf("runs = %+v", list.Runs)
	}
}

func TestRunWorkspace_MissingCmd(t *testing.T) {
	env := newTestEnv(t, "")
	ws := env.newWorkspace(t, "")
	w := env.do(t, http.MethodPost, "/api/workspaces/"+ws.ID+"/run", RunRequest{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestRunWorkspace_RemoteEndpoint(t *testing.T) {
	var got models.RunRequest
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("compile error"))
	}))
	defer remote.Close()

	env := newTestEnv(t, remote.URL)
	ws := env.newWorkspace(t, "main.c")

	w := env.do(t, http.MethodPost, "/api/workspaces/"+ws.ID+"/run", RunRequest{Cmd: "cc main.c", Env: []string{"CFLAGS=-O2"}})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Body.String() != "compile error" {
		t.Errorf("body = %q, want remote body verbatim", w.Body.String())
	}
	if got.Cmd != "cc main.c" || len(got.Files) != 1 || got.Files[0].Name != "main.c" || got.Env[0] != "CFLAGS=-O2" {
		t.Errorf("remote received %+v", got)
	}
}

func TestRunWorkspace_RemoteUnreachable(t *testing.T) {
	remote := httptest.NewServer(http.NotFoundHandler())
	url := remote.URL
	remote.Close()

	env := newTestEnv(t, url)
	ws := env.newWorkspace(t, "")
	w := env.do(t, http.MethodPost, "/api/workspaces/"+ws.ID+"/run", RunRequest{Cmd: "true"})
	if w.Body.String() != "An error occurred." {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestRunWorkspace_SingleOutstanding(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		_, _ = w.Write([]byte("done"))
	}))
	defer remote.Close()

	env := newTestEnv(t, remote.URL)
	ws := env.newWorkspace(t, "")
	target := "/api/workspaces/" + ws.ID + "/run"

	var wg sync.WaitGroup
	var first *httptest.ResponseRecorder
	wg.Add(1)
	go func() {
		defer wg.Done()
		first = env.do(t, http.MethodPost, target, RunRequest{Cmd: "slow"})
	}()
	<-entered

	second := env.do(t, http.MethodPost, target, RunRequest{Cmd: "again"})
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("concurrent run status = %d, want 429", second.Code)
	}

	close(release)
	wg.Wait()
	if first.Body.String() != "done" {
		t.Errorf("first body = %q", first.Body.String())
	}
}

func TestExec(t *testing.T) {
	env := newTestEnv(t, "")
	body := ExecRequest{
		Cmd:   "cat src/a.txt; echo \" $LANGUAGE_VERSION\"",
		Files: []models.File{{Name: "src/a.txt", Data: "alpha"}},
	}
	w := env.do(t, http.MethodPost, "/lang/go/1.22", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := w.Body.String(); got != "alpha 1.22\n" {
		t.Errorf("output = %q", got)
	}
}

func TestExec_NonZeroExitStillOK(t *testing.T) {
	env := newTestEnv(t, "")
	w := env.do(t, http.MethodPost, "/api/exec", ExecRequest{Cmd: "echo oops; exit 3"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Body.String() != "oops\n" {
		t.Errorf("output = %q", w.Body.String())
	}
}

func TestExec_TraversalRejected(t *testing.T) {
	env := newTestEnv(t, "")
	w := env.do(t, http.MethodPost, "/api/exec", ExecRequest{
		Cmd:   "true",
		Files: []models.File{{Name: "../escape.txt", Data: "x"}},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestExec_Validation(t *testing.T) {
	env := newTestEnv(t, "")
	w := env.do(t, http.MethodPost, "/api/exec", ExecRequest{Files: []models.File{{Name: "a", Data: "b"}}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing cmd status = %d, want 400", w.Code)
	}
	w = env.do(t, http.MethodPost, "/api/exec", ExecRequest{Cmd: "true", Files: []models.File{{Data: "b"}}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unnamed file status = %d, want 400", w.Code)
	}
}

func TestListRuns_Empty(t *testing.T) {
	env := newTestEnv(t, "")
	ws := env.newWorkspace(t, "")
	w := env.do(t, http.MethodGet, "/api/workspaces/"+ws.ID+"/runs?limit=5", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != `{"runs":[]}` {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestListRuns_ScopedToWorkspace(t *testing.T) {
	env := newTestEnv(t, "")
	a := env.newWorkspace(t, "")
	b := env.newWorkspace(t, "")

	w := env.do(t, http.MethodPost, "/api/workspaces/"+b.ID+"/run", RunRequest{Cmd: "echo private"})
	if w.Code != http.StatusOK {
		t.Fatalf("run status = %d", w.Code)
	}

	w = env.do(t, http.MethodGet, "/api/workspaces/"+a.ID+"/runs", nil)
	var list RunListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Runs) != 0 {
		t.Errorf("workspace A sees runs of B: %+v", list.Runs)
	}

	// There is no listing across workspaces.
	w = env.do(t, http.MethodGet, "/api/runs", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("global run list status = %d, want 404", w.Code)
	}
	w = env.do(t, http.MethodGet, "/api/workspaces/nope/runs", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown workspace runs status = %d, want 404", w.Code)
	}
}

func TestEvents_OtherWorkspaceNotDelivered(t *testing.T) {
	env := newTestEnv(t, "")
	a := env.newWorkspace(t, "")
	b := env.newWorkspace(t, "")

	ch := env.broker.Subscribe(a.ID)
	defer env.broker.Unsubscribe(ch)

	wsB, err := env.store.Get(b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if err := wsB.WriteFile("secret.txt", "password=hunter2"); err != nil {
		t.Fatal(err)
	}
	_ = env.do(t, http.MethodPost, "/api/workspaces/"+a.ID+"/nodes", CreateNodeRequest{Name: "own.txt"})

	time.Sleep(50 * time.Millisecond)
	var got []string
	for done := false; !done; {
		select {
		case msg := <-ch:
			got = append(got, string(msg))
		default:
			done = true
		}
	}
	joined := strings.Join(got, "")
	if strings.Contains(joined, b.ID) || strings.Contains(joined, "secret.txt") {
		t.Errorf("workspace A received B's events: %s", joined)
	}
	if !strings.Contains(joined, "own.txt") {
		t.Errorf("workspace A missed its own event: %s", joined)
	}
}

func TestEvents_UnknownWorkspace(t *testing.T) {
	env := newTestEnv(t, "")
	w := env.do(t, http.MethodGet, "/api/workspaces/nope/events", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	w = env.do(t, http.MethodGet, "/api/events", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("global stream status = %d, want 404", w.Code)
	}
}

func TestDeleteWorkspace_EndsEventStream(t *testing.T) {
	env := newTestEnv(t, "")
	ws := env.newWorkspace(t, "")
	ch := env.broker.Subscribe(ws.ID)

	_ = env.do(t, http.MethodDelete, "/api/workspaces/"+ws.ID, nil)

	timeout := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("event stream not closed after workspace delete")
		}
	}
}

func TestRunWorkspace_TouchesSession(t *testing.T) {
	env := newTestEnv(t, "")
	resp := env.newWorkspace(t, "")
	ws, err := env.store.Get(resp.ID)
	if err != nil {
		t.Fatal(err)
	}
	before := ws.LastTouched()
	time.Sleep(5 * time.Millisecond)

	w := env.do(t, http.MethodPost, "/api/workspaces/"+resp.ID+"/run", RunRequest{Cmd: "true"})
	if w.Code != http.StatusOK {
		t.Fatalf("run status = %d", w.Code)
	}
	if !ws.LastTouched().After(before) {
		t.Error("run did not mark the workspace as in use")
	}
}

func TestRunWorkspace_NotSweptWhileRunning(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
	}))
	defer remote.Close()

	env := newTestEnv(t, remote.URL)
	resp := env.newWorkspace(t, "")

	done := make(chan struct{})
	go func() {
		defer close(done)
		env.do(t, http.MethodPost, "/api/workspaces/"+resp.ID+"/run", RunRequest{Cmd: "slow"})
	}()
	<-entered

	// Far past the idle TTL, but the run is still going.
	if n := env.store.Sweep(time.Now().Add(24 * time.Hour)); n != 0 {
		t.Errorf("swept %d workspaces with a run in flight", n)
	}
	close(release)
	<-done

	if _, err := env.store.Get(resp.ID); err != nil {
		t.Errorf("workspace gone after run: %v", err)
	}
}
