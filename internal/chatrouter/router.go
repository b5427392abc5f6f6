package chatrouter

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"taskdeck/internal/gateway"
)

// Action identifiers reported in TodoActionResult and used to name routes.
const (
	ActionCreate   = "create"
	ActionList     = "list"
	ActionDelete   = "delete"
	ActionUpdate   = "update"
	ActionComplete = "complete"
	ActionChat     = "chat"
)

// ChatGateway is the backend surface the router drives: the five task CRUD
// calls plus the generic chat endpoint.
type ChatGateway interface {
	ListTasks(ctx context.Context, userID int64) ([]gateway.Task, error)
	CreateTask(ctx context.Context, userID int64, title, description string) (gateway.Task, error)
	ReplaceTask(ctx context.Context, userID, taskID int64, title, description string) (gateway.Task, error)
	DeleteTask(ctx context.Context, userID, taskID int64) error
	SetTaskCompletion(ctx context.Context, userID, taskID int64, completed bool) (gateway.Task, error)
	SendChat(ctx context.Context, userID int64, message, conversationID string) (gateway.SendMessageResponse, error)
}

type request struct {
	userID         int64
	message        string
	conversationID string
}

type handler func(ctx context.Context, req request) (gateway.SendMessageResponse, error)

// route pairs one keyword predicate with its handler. Routes are evaluated
// in declaration order against the lower-cased message and the first match
// wins; the order itself is part of the contract and must not be reordered.
type route struct {
	action string
	match  func(lowerMsg string) bool
	handle handler
}

// Router turns a free-text chat message into exactly one backend call. It is
// stateless across messages; the conversation id is carried by the caller.
type Router struct {
	gw     ChatGateway
	log    *slog.Logger
	now    func() time.Time
	routes []route
}

func NewRouter(gw ChatGateway, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	r := &Router{gw: gw, log: log, now: time.Now}
	r.routes = []route{
		{
			action: ActionCreate,
			match: func(m string) bool {
				return containsAll(m, "add", "task") || containsAll(m, "create", "task")
			},
			handle: r.handleCreate,
		},
		{
			action: ActionList,
			match: func(m string) bool {
				return containsAll(m, "show", "task") || containsAll(m, "list", "task") || containsAll(m, "view", "task")
			},
			handle: r.handleList,
		},
		{
			action: ActionDelete,
			match: func(m string) bool {
				return (strings.Contains(m, "delete") || strings.Contains(m, "remove")) && strings.Contains(m, "task")
			},
			handle: r.handleDelete,
		},
		{
			action: ActionUpdate,
			match: func(m string) bool {
				return (strings.Contains(m, "update") || strings.Contains(m, "modify") || strings.Contains(m, "change")) && strings.Contains(m, "task")
			},
			handle: r.handleUpdate,
		},
		{
			action: ActionComplete,
			match: func(m string) bool {
				return (strings.Contains(m, "mark") || strings.Contains(m, "complete") || strings.Contains(m, "done")) && strings.Contains(m, "task")
			},
			handle: r.handleComplete,
		},
	}
	return r
}

// Resolve reports which route a message would take without issuing any call.
func (r *Router) Resolve(message string) string {
	lower := strings.ToLower(message)
	for _, rt := range r.routes {
		if rt.match(lower) {
			return rt.action
		}
	}
	return ActionChat
}

// Send routes one message. Task-command failures are folded into the reply
// envelope rather than returned; only the generic chat path propagates its
// backend error, since there is no reply to synthesize without the backend.
func (r *Router) Send(ctx context.Context, userID int64, message, conversationID string) (gateway.SendMessageResponse, error) {
	req := request{userID: userID, message: message, conversationID: conversationID}
	lower := strings.ToLower(message)
	for _, rt := range r.routes {
		if rt.match(lower) {
			r.log.Debug("chat message routed", "action", rt.action, "user_id", userID)
			return rt.handle(ctx, req)
		}
	}
	r.log.Debug("chat message routed", "action", ActionChat, "user_id", userID)
	return r.gw.SendChat(ctx, userID, message, conversationID)
}

func (r *Router) handleCreate(ctx context.Context, req request) (gateway.SendMessageResponse, error) {
	title := ExtractTaskTitle(req.message)
	description := fmt.Sprintf("Created from chat: %q", req.message)
	task, err := r.gw.CreateTask(ctx, req.userID, title, description)
	if err != nil {
		return r.failure(req, fmt.Sprintf("Sorry, I couldn't create the task. Error: %s", err), title), nil
	}
	return r.reply(req,
		fmt.Sprintf("I've created the task %q for you. Task ID: %d", task.Title, task.ID),
		&gateway.TodoActionResult{Action: "created", TodoID: strconv.FormatInt(task.ID, 10), TodoTitle: task.Title},
	), nil
}

func (r *Router) handleList(ctx context.Context, req request) (gateway.SendMessageResponse, error) {
	tasks, err := r.gw.ListTasks(ctx, req.userID)
	if err != nil {
		return r.failure(req, fmt.Sprintf("Sorry, I couldn't retrieve your tasks. Error: %s", err), "Failed to list tasks"), nil
	}
	if len(tasks) == 0 {
		return r.reply(req,
			"You don't have any tasks yet. You can create tasks by telling me something like 'Add a task to buy groceries'.",
			&gateway.TodoActionResult{Action: "list", TodoTitle: "No tasks found"},
		), nil
	}
	lines := make([]string, 0, len(tasks))
	for _, t := range tasks {
		box := " "
		if t.Completed {
			box = "x"
		}
		lines = append(lines, fmt.Sprintf("- [%s] %d. %s", box, t.ID, t.Title))
	}
	body := fmt.Sprintf("Here are your tasks:\n%s\n\nYou have %d task(s) in total.", strings.Join(lines, "\n"), len(tasks))
	return r.reply(req, body,
		&gateway.TodoActionResult{Action: "list", TodoTitle: fmt.Sprintf("%d tasks retrieved", len(tasks))},
	), nil
}

func (r *Router) handleDelete(ctx context.Context, req request) (gateway.SendMessageResponse, error) {
	taskID, ok := ExtractTaskID(req.message)
	if !ok {
		return r.failure(req, "I couldn't identify which task to delete. Please specify the task ID or title.", "Task ID not found"), nil
	}
	if err := r.gw.DeleteTask(ctx, req.userID, taskID); err != nil {
		return r.failure(req, fmt.Sprintf("Sorry, I couldn't delete the task. Error: %s", err), "Failed to delete task"), nil
	}
	return r.reply(req,
		fmt.Sprintf("I've successfully deleted the task with ID %d.", taskID),
		&gateway.TodoActionResult{Action: "deleted", TodoID: strconv.FormatInt(taskID, 10), TodoTitle: fmt.Sprintf("Task %d deleted", taskID)},
	), nil
}

func (r *Router) handleUpdate(ctx context.Context, req request) (gateway.SendMessageResponse, error) {
	taskID, ok := ExtractTaskID(req.message)
	if !ok {
		return r.failure(req, "I couldn't identify which task to update. Please specify the task ID or title.", "Task ID not found"), nil
	}
	newTitle, ok := ExtractUpdatedTitle(req.message)
	if !ok {
		return r.failure(req, "I couldn't determine what to update in the task. Please specify the new title or details.", "Update details not found"), nil
	}
	description := fmt.Sprintf("Updated from chat: %q", req.message)
	task, err := r.gw.ReplaceTask(ctx, req.userID, taskID, newTitle, description)
	if err != nil {
		return r.failure(req, fmt.Sprintf("Sorry, I couldn't update the task. Error: %s", err), "Failed to update task"), nil
	}
	return r.reply(req,
		fmt.Sprintf("I've updated the task to %q.", task.Title),
		&gateway.TodoActionResult{Action: "updated", TodoID: strconv.FormatInt(task.ID, 10), TodoTitle: task.Title},
	), nil
}

func (r *Router) handleComplete(ctx context.Context, req request) (gateway.SendMessageResponse, error) {
	taskID, ok := ExtractTaskID(req.message)
	if !ok {
		return r.failure(req, "I couldn't identify which task to mark as complete. Please specify the task ID or title.", "Task ID not found"), nil
	}
	task, err := r.gw.SetTaskCompletion(ctx, req.userID, taskID, true)
	if err != nil {
		return r.failure(req, fmt.Sprintf("Sorry, I couldn't mark the task as complete. Error: %s", err), "Failed to complete task"), nil
	}
	return r.reply(req,
		fmt.Sprintf("I've marked the task %q as complete.", task.Title),
		&gateway.TodoActionResult{Action: "completed", TodoID: strconv.FormatInt(task.ID, 10), TodoTitle: task.Title},
	), nil
}

// reply synthesizes the templated response envelope for a routed command.
// The user id doubles as the conversation id on these local paths.
func (r *Router) reply(req request, text string, result *gateway.TodoActionResult) gateway.SendMessageResponse {
	return gateway.SendMessageResponse{
		ConversationID:   strconv.FormatInt(req.userID, 10),
		Message:          req.message,
		AIResponse:       text,
		Timestamp:        r.now().UTC().Format(time.RFC3339),
		TodoActionResult: result,
	}
}

func (r *Router) failure(req request, text, todoTitle string) gateway.SendMessageResponse {
	return r.reply(req, text, &gateway.TodoActionResult{Action: "error", TodoTitle: todoTitle})
}

func containsAll(msg string, words ...string) bool {
	for _, w := range words {
		if !strings.Contains(msg, w) {
			return false
		}
	}
	return true
}
