package taskstate

import (
	"context"
	"errors"
	"testing"

	"taskdeck/internal/gateway"
)

type fakeTasksGateway struct {
	tasks     []gateway.Task
	listErr   error
	createErr error
	deleteErr error
	toggleErr error

	createdTitle string
	createdDesc  string
	deletedID    int64
	toggleSent   *bool
	calls        int
}

func (f *fakeTasksGateway) ListTasks(_ context.Context, _ int64) ([]gateway.Task, error) {
	f.calls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]gateway.Task(nil), f.tasks...), nil
}

func (f *fakeTasksGateway) CreateTask(_ context.Context, userID int64, title, description string) (gateway.Task, error) {
	f.calls++
	if f.createErr != nil {
		return gateway.Task{}, f.createErr
	}
	f.createdTitle = title
	f.createdDesc = description
	return gateway.Task{ID: 100, Title: title, Description: description, Completed: false, UserID: userID}, nil
}

func (f *fakeTasksGateway) ReplaceTask(_ context.Context, userID, taskID int64, title, description string) (gateway.Task, error) {
	f.calls++
	return gateway.Task{ID: taskID, Title: title, Description: description, UserID: userID}, nil
}

func (f *fakeTasksGateway) DeleteTask(_ context.Context, _, taskID int64) error {
	f.calls++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedID = taskID
	return nil
}

func (f *fakeTasksGateway) SetTaskCompletion(_ context.Context, userID, taskID int64, completed bool) (gateway.Task, error) {
	f.calls++
	if f.toggleErr != nil {
		return gateway.Task{}, f.toggleErr
	}
	f.toggleSent = &completed
	return gateway.Task{ID: taskID, Title: "t", Completed: completed, UserID: userID}, nil
}

func signedIn() (int64, bool) { return 1, true }

func TestFetch_ReplacesCollectionWholesale(t *testing.T) {
	gw := &fakeTasksGateway{tasks: []gateway.Task{{ID: 1, Title: "a"}, {ID: 2, Title: "b"}}}
	m := NewMachine(gw, signedIn)
	m.state.Tasks = []gateway.Task{{ID: 99, Title: "stale"}}

	if err := m.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	st := m.Snapshot()
	if len(st.Tasks) != 2 || st.Tasks[0].ID != 1 || st.Tasks[1].ID != 2 {
		t.Fatalf("expected wholesale replacement, got %#v", st.Tasks)
	}
	if st.Loading || st.Err != "" {
		t.Fatalf("expected settled state, got %#v", st)
	}
}

func TestCreate_ReturnsServerTaskUncompleted(t *testing.T) {
	gw := &fakeTasksGateway{}
	m := NewMachine(gw, signedIn)

	task, err := m.Create(context.Background(), "buy milk", "from chat")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if task.Title != "buy milk" || task.Completed {
		t.Fatalf("expected created task with given title and completed=false, got %#v", task)
	}
	if st := m.Snapshot(); len(st.Tasks) != 1 || st.Tasks[0].ID != 100 {
		t.Fatalf("expected server task appended, got %#v", st.Tasks)
	}
}

func TestCreate_EmptyTitleRejectedLocally(t *testing.T) {
	gw := &fakeTasksGateway{}
	m := NewMachine(gw, signedIn)

	_, err := m.Create(context.Background(), "   ", "")
	if !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}
	if gw.calls != 0 {
		t.Fatal("empty title must not reach the network")
	}
}

func TestToggleCompletion_SendsNegation(t *testing.T) {
	gw := &fakeTasksGateway{}
	m := NewMachine(gw, signedIn)
	m.state.Tasks = []gateway.Task{{ID: 5, Title: "t", Completed: true}}

	task, err := m.ToggleCompletion(context.Background(), 5)
	if err != nil {
		t.Fatalf("ToggleCompletion failed: %v", err)
	}
	if gw.toggleSent == nil || *gw.toggleSent != false {
		t.Fatalf("expected negation of local completed=true, sent %#v", gw.toggleSent)
	}
	if task.Completed {
		t.Fatalf("expected server task applied, got %#v", task)
	}
	if st := m.Snapshot(); st.Tasks[0].Completed {
		t.Fatal("expected local entry replaced with server task")
	}
}

func TestToggleCompletion_UnknownTaskIsLocalError(t *testing.T) {
	gw := &fakeTasksGateway{}
	m := NewMachine(gw, signedIn)

	if _, err := m.ToggleCompletion(context.Background(), 404); err == nil {
		t.Fatal("expected error for unknown task")
	}
	if gw.calls != 0 {
		t.Fatal("unknown task must not reach the network")
	}
}

func TestDelete_SuccessRemovesEntry(t *testing.T) {
	gw := &fakeTasksGateway{}
	m := NewMachine(gw, signedIn)
	m.state.Tasks = []gateway.Task{{ID: 1}, {ID: 2}}

	if err := m.Delete(context.Background(), 1); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	st := m.Snapshot()
	if len(st.Tasks) != 1 || st.Tasks[0].ID != 2 {
		t.Fatalf("expected task 1 removed, got %#v", st.Tasks)
	}
}

func TestDelete_FailureKeepsEntryAndRethrows(t *testing.T) {
	gw := &fakeTasksGateway{deleteErr: &gateway.APIError{Status: 500, Detail: "boom"}}
	m := NewMachine(gw, signedIn)
	m.state.Tasks = []gateway.Task{{ID: 1}}

	err := m.Delete(context.Background(), 1)
	if err == nil {
		t.Fatal("expected error")
	}
	st := m.Snapshot()
	if len(st.Tasks) != 1 {
		t.Fatal("failed delete must keep the local entry")
	}
	if st.Err != "boom" {
		t.Fatalf("expected error recorded in state, got %q", st.Err)
	}
}

func TestUpdate_ReplacesMatchingEntry(t *testing.T) {
	gw := &fakeTasksGateway{}
	m := NewMachine(gw, signedIn)
	m.state.Tasks = []gateway.Task{{ID: 3, Title: "old"}, {ID: 4, Title: "other"}}

	if _, err := m.Update(context.Background(), 3, "new", "d"); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	st := m.Snapshot()
	if st.Tasks[0].Title != "new" || st.Tasks[1].Title != "other" {
		t.Fatalf("expected only matching entry replaced, got %#v", st.Tasks)
	}
}

func TestSetFilter_IsPure(t *testing.T) {
	gw := &fakeTasksGateway{}
	m := NewMachine(gw, signedIn)
	m.state.Tasks = []gateway.Task{{ID: 1, Completed: false}, {ID: 2, Completed: true}}

	m.SetFilter(FilterCompleted)
	m.SetFilter(FilterCompleted)
	if gw.calls != 0 {
		t.Fatal("SetFilter must not issue network calls")
	}
	if st := m.Snapshot(); len(st.Tasks) != 2 {
		t.Fatal("SetFilter must not change the collection")
	}
	if got := m.Filtered(); len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("expected completed-only view, got %#v", got)
	}

	m.SetFilter(FilterActive)
	if got := m.Filtered(); len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("expected active-only view, got %#v", got)
	}

	m.SetFilter(Filter("bogus"))
	if st := m.Snapshot(); st.Filter != FilterAll {
		t.Fatalf("expected unknown filter to normalize to all, got %q", st.Filter)
	}
}

func TestOperations_RequireAuthentication(t *testing.T) {
	gw := &fakeTasksGateway{}
	m := NewMachine(gw, func() (int64, bool) { return 0, false })

	if err := m.Fetch(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if gw.calls != 0 {
		t.Fatal("unauthenticated fetch must not reach the network")
	}
}
