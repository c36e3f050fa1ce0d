// Package editor — сессия редактирования flow с единственным владельцем.
//
// Session объединяет Workspace, canvas открытого flow, журнал undo/redo и
// Runner. Все операции сериализуются одним мьютексом, поэтому модель
// "один писатель" сохраняется за конкурентным HTTP-сервером.
//
// После каждого изменения canvas его содержимое переносится в Workspace
// через AddNodeToFlow/AddEdgeToFlow, так что currentFlow всегда совпадает
// с тем, что видит пользователь.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shaiso/Wireflow/internal/canvas"
	"github.com/shaiso/Wireflow/internal/domain"
	"github.com/shaiso/Wireflow/internal/engine"
	"github.com/shaiso/Wireflow/internal/executor"
	"github.com/shaiso/Wireflow/internal/history"
	"github.com/shaiso/Wireflow/internal/store"
	"github.com/shaiso/Wireflow/internal/telemetry"
)

// Ошибки сессии.
var (
	// ErrNoRepository — сохранение недоступно: хранилище не настроено.
	ErrNoRepository = errors.New("repository is not configured")

	// ErrUnknownEndpoint — ребро ссылается на отсутствующий узел.
	ErrUnknownEndpoint = errors.New("edge endpoint not found")

	// ErrNodeExists — узел с таким ID уже есть на canvas.
	ErrNodeExists = errors.New("node already exists")

	// ErrEdgeExists — ребро с таким ID уже есть на canvas.
	ErrEdgeExists = errors.New("edge already exists")

	// ErrInvalidDirection — направление данных не input и не output.
	ErrInvalidDirection = errors.New("invalid data direction")
)

// Операции журнала для метрик.
const (
	opRecord = "record"
	opUndo   = "undo"
	opRedo   = "redo"
)

// Config — конфигурация сессии.
type Config struct {
	// Workspace — состояние рабочего места. По умолчанию store.NewWorkspace().
	Workspace *store.Workspace

	// Repository — долговременное хранилище. Без него Save недоступен.
	Repository store.Repository

	// Events — публикация flow.saved. Опционально.
	Events store.Events

	// Dispatcher — executors узлов. По умолчанию executor.NewDispatcher.
	Dispatcher *executor.Dispatcher

	// Notifier — уведомления о запусках. Опционально.
	Notifier executor.Notifier

	Logger *slog.Logger
}

// Session — сессия редактирования.
type Session struct {
	mu      sync.Mutex
	ws      *store.Workspace
	saver   *store.Saver
	canvas  *canvas.Canvas
	history *history.Log
	runner  *executor.Runner
	logger  *slog.Logger
}

// New создаёт сессию. Если в workspace уже открыт flow, он загружается
// в canvas.
func New(cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ws := cfg.Workspace
	if ws == nil {
		ws = store.NewWorkspace()
	}

	cv := canvas.New(nil, nil)
	s := &Session{
		ws:      ws,
		canvas:  cv,
		history: history.New(cv),
		runner: executor.NewRunner(executor.RunnerConfig{
			Graph:      cv,
			Dispatcher: cfg.Dispatcher,
			Notifier:   cfg.Notifier,
			Logger:     logger,
		}),
		logger: logger,
	}
	if cfg.Repository != nil {
		s.saver = store.NewSaver(store.SaverConfig{
			Workspace:  ws,
			Repository: cfg.Repository,
			Events:     cfg.Events,
			Logger:     logger,
		})
	}
	if flow, ok := ws.CurrentFlow(); ok {
		s.loadCanvas(flow)
	}
	return s
}

// Load заменяет проекты workspace содержимым хранилища.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saver == nil {
		return nil
	}
	if err := s.saver.Load(ctx); err != nil {
		return err
	}
	if flow, ok := s.ws.CurrentFlow(); ok {
		s.loadCanvas(flow)
	} else {
		s.loadCanvas(domain.Flow{})
	}
	return nil
}

// --- Projects and flows ---

// Projects возвращает все проекты.
func (s *Session) Projects() []domain.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ws.Projects()
}

// CreateProject добавляет проект и сохраняет его метаданные.
func (s *Session) CreateProject(ctx context.Context, p domain.Project) (domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created, err := s.ws.AddProject(p)
	if err != nil {
		return domain.Project{}, err
	}
	if s.saver != nil {
		if err := s.saver.SaveProject(ctx, created); err != nil {
			return domain.Project{}, err
		}
	}
	return created, nil
}

// UpdateProject меняет имя и описание проекта.
func (s *Session) UpdateProject(ctx context.Context, p domain.Project) (domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated, err := s.ws.UpdateProject(p)
	if err != nil {
		return domain.Project{}, err
	}
	if s.saver != nil {
		if err := s.saver.SaveProject(ctx, updated); err != nil {
			return domain.Project{}, err
		}
	}
	return updated, nil
}

// DeleteProject удаляет проект. Если был открыт его flow, canvas очищается.
func (s *Session) DeleteProject(ctx context.Context, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ws.DeleteProject(projectID); err != nil {
		return err
	}
	if _, ok := s.ws.CurrentFlow(); !ok {
		s.loadCanvas(domain.Flow{})
	}
	if s.saver != nil {
		return s.saver.DeleteProject(ctx, projectID)
	}
	return nil
}

// CreateFlow добавляет flow в проект и открывает его.
func (s *Session) CreateFlow(f domain.Flow) (domain.Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created, err := s.ws.AddFlow(f)
	if err != nil {
		return domain.Flow{}, err
	}
	if _, err := s.ws.OpenFlow(created.ProjectID, created.ID); err != nil {
		return domain.Flow{}, err
	}
	s.loadCanvas(created)
	s.logger.Info("flow created", "flow_id", created.ID, "project_id", created.ProjectID)
	return created, nil
}

// UpdateFlow меняет имя и описание flow. Граф flow меняется только
// операциями canvas.
func (s *Session) UpdateFlow(f domain.Flow) (domain.Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.findFlow(f.ProjectID, f.ID)
	if err != nil {
		return domain.Flow{}, err
	}
	current.Name = f.Name
	current.Description = f.Description
	return s.ws.UpdateFlow(current)
}

// DeleteFlow удаляет flow. Если он был открыт, canvas и журнал очищаются.
func (s *Session) DeleteFlow(ctx context.Context, projectID, flowID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ws.DeleteFlow(projectID, flowID); err != nil {
		return err
	}
	if _, ok := s.ws.CurrentFlow(); !ok {
		s.loadCanvas(domain.Flow{})
	}
	if s.saver != nil {
		return s.saver.DeleteFlow(ctx, projectID, flowID)
	}
	return nil
}

// OpenFlow делает flow текущим, загружает его в canvas и сбрасывает журнал.
func (s *Session) OpenFlow(projectID, flowID string) (domain.Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	flow, err := s.ws.OpenFlow(projectID, flowID)
	if err != nil {
		return domain.Flow{}, err
	}
	s.loadCanvas(flow)
	return flow, nil
}

// --- Canvas ---

// State — снимок открытого flow для клиента.
type State struct {
	Flow      domain.Flow `json:"flow"`
	CanUndo   bool        `json:"canUndo"`
	CanRedo   bool        `json:"canRedo"`
	NeedsSave bool        `json:"needsSave"`
}

// Canvas возвращает снимок открытого flow.
func (s *Session) Canvas() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state()
}

// AddNode добавляет узел и записывает действие в журнал.
func (s *Session) AddNode(n domain.Node) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireFlow(); err != nil {
		return State{}, err
	}
	// Замена узла записалась бы как AddNode, и undo удалил бы оригинал.
	if old, err := s.canvas.Node(n.ID); err == nil && !old.IsPlaceholder() {
		return State{}, fmt.Errorf("%w: %s", ErrNodeExists, n.ID)
	}
	if err := s.history.AddNode(n, true); err != nil {
		return State{}, err
	}
	telemetry.ObserveHistoryOp(opRecord)
	return s.commit()
}

// RemoveNode удаляет узел. Инцидентные рёбра удаляются раньше узла,
// каждое отдельной записью журнала, поэтому undo возвращает их по одному.
func (s *Session) RemoveNode(nodeID string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireFlow(); err != nil {
		return State{}, err
	}
	node, err := s.canvas.Node(nodeID)
	if err != nil {
		return State{}, err
	}

	record := !node.IsPlaceholder()
	for _, e := range s.canvas.IncidentEdges(nodeID) {
		if err := s.history.RemoveEdge(e, record); err != nil {
			return State{}, err
		}
		telemetry.ObserveHistoryOp(opRecord)
	}
	if err := s.history.RemoveNode(node, record); err != nil {
		return State{}, err
	}
	telemetry.ObserveHistoryOp(opRecord)
	return s.commit()
}

// AddEdge добавляет ребро между существующими узлами.
func (s *Session) AddEdge(e domain.Edge) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireFlow(); err != nil {
		return State{}, err
	}
	if err := e.Validate(); err != nil {
		return State{}, err
	}
	for _, id := range []string{e.Source, e.Target} {
		n, err := s.canvas.Node(id)
		if err != nil || n.IsPlaceholder() {
			return State{}, fmt.Errorf("%w: %s", ErrUnknownEndpoint, id)
		}
	}
	for _, old := range s.canvas.GetEdges() {
		if old.ID == e.ID {
			return State{}, fmt.Errorf("%w: %s", ErrEdgeExists, e.ID)
		}
	}
	if err := s.history.AddEdge(e, true); err != nil {
		return State{}, err
	}
	telemetry.ObserveHistoryOp(opRecord)
	return s.commit()
}

// RemoveEdge удаляет ребро.
func (s *Session) RemoveEdge(edgeID string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireFlow(); err != nil {
		return State{}, err
	}
	var edge *domain.Edge
	for _, e := range s.canvas.GetEdges() {
		if e.ID == edgeID {
			edge = &e
			break
		}
	}
	if edge == nil {
		return State{}, fmt.Errorf("%w: %s", canvas.ErrEdgeNotFound, edgeID)
	}
	if err := s.history.RemoveEdge(*edge, true); err != nil {
		return State{}, err
	}
	telemetry.ObserveHistoryOp(opRecord)
	return s.commit()
}

// Undo отменяет последнее действие. Возвращает false, если отменять нечего.
func (s *Session) Undo() (State, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireFlow(); err != nil {
		return State{}, false, err
	}
	ok, err := s.history.Undo()
	if err != nil {
		return State{}, false, err
	}
	if !ok {
		st, err := s.state()
		return st, false, err
	}
	telemetry.ObserveHistoryOp(opUndo)
	st, err := s.commit()
	return st, true, err
}

// Redo повторяет отменённое действие. Возвращает false, если повторять нечего.
func (s *Session) Redo() (State, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireFlow(); err != nil {
		return State{}, false, err
	}
	ok, err := s.history.Redo()
	if err != nil {
		return State{}, false, err
	}
	if !ok {
		st, err := s.state()
		return st, false, err
	}
	telemetry.ObserveHistoryOp(opRedo)
	st, err := s.commit()
	return st, true, err
}

// UpdateNodeState заменяет state узла. Правка data в журнал не попадает.
func (s *Session) UpdateNodeState(nodeID string, state map[string]any) (domain.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireFlow(); err != nil {
		return domain.Node{}, err
	}
	node, err := s.canvas.Node(nodeID)
	if err != nil {
		return domain.Node{}, err
	}
	node.Data.State = domain.CloneMap(state)
	if err := s.canvas.UpdateNodeData(nodeID, node.Data); err != nil {
		return domain.Node{}, err
	}
	if _, err := s.commit(); err != nil {
		return domain.Node{}, err
	}
	return node, nil
}

// SetViewport сохраняет положение канваса.
func (s *Session) SetViewport(v domain.Viewport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ws.SetViewport(v)
}

// --- Execution ---

// TestNode выполняет один узел открытого flow.
//
// Результат (output или error) записан в узел и в workspace. Ошибка
// executor'а возвращается как *executor.ExecutionError.
func (s *Session) TestNode(ctx context.Context, nodeID, token string, payload any) (domain.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	flow, ok := s.ws.CurrentFlow()
	if !ok {
		return domain.Node{}, store.ErrNoCurrentFlow
	}

	_, runErr := s.runner.Run(ctx, nodeID, executor.RunOptions{
		FlowID:  flow.ID,
		Token:   token,
		Payload: payload,
	})
	if _, err := s.commit(); err != nil {
		return domain.Node{}, err
	}

	node, err := s.canvas.Node(nodeID)
	if err != nil {
		if runErr != nil {
			return domain.Node{}, runErr
		}
		return domain.Node{}, err
	}
	return node, runErr
}

// RunFlow выполняет узлы открытого flow в топологическом порядке.
// Возвращает ID выполненных узлов.
func (s *Session) RunFlow(ctx context.Context, token string, payload any) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	flow, ok := s.ws.CurrentFlow()
	if !ok {
		return nil, store.ErrNoCurrentFlow
	}

	done, runErr := s.runner.RunFlow(ctx, executor.RunOptions{
		FlowID:  flow.ID,
		Token:   token,
		Payload: payload,
	})
	if _, err := s.commit(); err != nil {
		return done, err
	}
	return done, runErr
}

// NodeData возвращает входной контекст узла (выводы всех предков)
// или его собственный вывод.
func (s *Session) NodeData(nodeID string, direction engine.Direction) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if direction != engine.DirectionInput && direction != engine.DirectionOutput {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDirection, direction)
	}
	node, err := s.canvas.Node(nodeID)
	if err != nil {
		return nil, err
	}
	return engine.DataContext(direction, node, s.canvas.GetNodes(), s.canvas.GetEdges()), nil
}

// --- Persistence ---

// Save сохраняет открытый flow. Висячие рёбра удаляются и из canvas.
func (s *Session) Save(ctx context.Context) (domain.Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saver == nil {
		return domain.Flow{}, ErrNoRepository
	}
	flow, err := s.saver.Save(ctx)
	telemetry.ObserveFlowSave(err)
	if err != nil {
		return domain.Flow{}, err
	}

	nodes := s.canvas.GetNodes()
	s.canvas.Load(nodes, flow.Edges)
	return flow, nil
}

// --- internal ---

// loadCanvas заменяет содержимое canvas и сбрасывает журнал.
func (s *Session) loadCanvas(flow domain.Flow) {
	s.canvas.Load(flow.Nodes, flow.Edges)
	s.history.Reset()
}

// commit переносит canvas в currentFlow. Пустой canvas получает placeholder.
func (s *Session) commit() (State, error) {
	if len(s.canvas.GetNodes()) == 0 {
		if err := s.canvas.AddNode(domain.NewFlowPlaceholder()); err != nil {
			return State{}, err
		}
	}

	nodes, edges := s.canvas.Snapshot()
	if err := s.ws.AddNodeToFlow(nodes); err != nil {
		return State{}, err
	}
	if err := s.ws.AddEdgeToFlow(edges); err != nil {
		return State{}, err
	}
	return s.state()
}

func (s *Session) state() (State, error) {
	flow, ok := s.ws.CurrentFlow()
	if !ok {
		return State{}, store.ErrNoCurrentFlow
	}
	// Canvas — источник истины для графа: в нём может быть placeholder,
	// которого нет в сохраняемом flow.
	flow.Nodes, flow.Edges = s.canvas.Snapshot()
	return State{
		Flow:      flow,
		CanUndo:   s.history.CanUndo(),
		CanRedo:   s.history.CanRedo(),
		NeedsSave: s.ws.NeedsSave(),
	}, nil
}

func (s *Session) requireFlow() error {
	if _, ok := s.ws.CurrentFlow(); !ok {
		return store.ErrNoCurrentFlow
	}
	return nil
}

func (s *Session) findFlow(projectID, flowID string) (domain.Flow, error) {
	p, err := s.ws.Project(projectID)
	if err != nil {
		return domain.Flow{}, err
	}
	i := p.FlowIndex(flowID)
	if i < 0 {
		return domain.Flow{}, fmt.Errorf("%w: %s", store.ErrFlowNotFound, flowID)
	}
	return p.Flows[i], nil
}
