package engine

import (
	"context"
	"sort"
	"sync"

	"github.com/craftforge/forge-backend/internal/logging"
	"github.com/craftforge/forge-backend/internal/pipeline/domain"
)

// genTask is one independent generation sub-task. Tasks write disjoint paths,
// so they can run concurrently and fail independently.
type genTask struct {
	name    string
	path    string
	produce func(ctx context.Context) (string, error)
}

type taskResult struct {
	task    genTask
	content string
	err     error
}

// buildTasks selects the generation tasks for a tech-stack decision. The
// selection is a decision table over backend.language and frontend.framework;
// unrecognized values are logged and skipped, never fatal.
func buildTasks(ctx context.Context, p *domain.Project, stack *domain.TechStackDecision, call generateFunc) []genTask {
	logger := logging.New(ctx)

	fileTask := func(name, path, describe string) genTask {
		return genTask{
			name: name,
			path: path,
			produce: func(ctx context.Context) (string, error) {
				return call(ctx, filePrompt(p, stack, describe))
			},
		}
	}
	configTask := func(name, path, describe string) genTask {
		return genTask{
			name: name,
			path: path,
			produce: func(ctx context.Context) (string, error) {
				return call(ctx, configFilePrompt(p, stack, describe))
			},
		}
	}

	var tasks []genTask

	switch stack.Backend.Language {
	case "Node.js":
		tasks = append(tasks,
			configTask("package.json", "package.json",
				"Generate the package.json for this Node.js project with appropriate dependencies."),
			fileTask("backend entry", "src/server.js",
				"Generate the main Express server file implementing the core API for this project."),
		)
	case "Python":
		tasks = append(tasks,
			configTask("requirements.txt", "requirements.txt",
				"Generate the requirements.txt for this Python project, one pinned package per line."),
			fileTask("backend entry", "src/app.py",
				"Generate the main Python application file implementing the core API for this project."),
		)
	case "", "None", "null":
		logger.Infof("generate_project", "no backend required for project type %q", stack.ProjectType)
	default:
		logger.Warnf("generate_project", "unsupported backend language %q, skipping backend generation", stack.Backend.Language)
	}

	switch {
	case stack.Frontend.Framework == "React.js":
		tasks = append(tasks,
			fileTask("frontend entry", "src/App.jsx",
				"Generate the root React component implementing the main user interface per the UX design."),
			fileTask("frontend index", "src/index.js",
				"Generate the React entry point that renders the App component."),
		)
	case stack.Frontend.Framework == "Vue.js":
		tasks = append(tasks,
			fileTask("frontend entry", "src/App.vue",
				"Generate the root Vue single-file component implementing the main user interface per the UX design."),
		)
	case stack.Frontend.Framework == "HTML/CSS" || stack.Frontend.Framework == "HTML" ||
		stack.Frontend.Framework == "Jekyll" || stack.ProjectType == "static_website":
		tasks = append(tasks,
			fileTask("static page", "index.html",
				"Generate the main HTML page for this static site per the UX design."),
			fileTask("stylesheet", "styles.css",
				"Generate the stylesheet implementing the UX design system for this site."),
		)
	case stack.Frontend.Framework == "" || stack.Frontend.Framework == "None":
		logger.Infof("generate_project", "no frontend required for project type %q", stack.ProjectType)
	default:
		logger.Warnf("generate_project", "unsupported frontend framework %q, skipping frontend generation", stack.Frontend.Framework)
	}

	if stack.Deployment.Containerization == "Docker" {
		tasks = append(tasks, configTask("Dockerfile", "Dockerfile",
			"Generate the Dockerfile for this project."))
	}

	tasks = append(tasks,
		configTask(".gitignore", ".gitignore",
			"Generate the .gitignore for this project's tech stack."),
		configTask("env template", ".env.example",
			"Generate a .env.example listing the environment variables this project needs, with placeholder values."),
		genTask{
			name: "documentation",
			path: "docs/README.md",
			produce: func(ctx context.Context) (string, error) {
				return call(ctx, docsPrompt(p, stack))
			},
		},
	)

	return tasks
}

// runTasks executes the tasks concurrently and joins their results. A failed
// task is recorded and does not abort its siblings.
func runTasks(ctx context.Context, sink FileSink, tasks []genTask) ([]string, []domain.TaskFailure) {
	results := make(chan taskResult, len(tasks))

	var wg sync.WaitGroup
	for _, task := range tasks {
		wg.Add(1)
		go func(task genTask) {
			defer wg.Done()
			content, err := task.produce(ctx)
			results <- taskResult{task: task, content: content, err: err}
		}(task)
	}
	wg.Wait()
	close(results)

	var created []string
	var failures []domain.TaskFailure
	for res := range results {
		if res.err == nil {
			res.err = sink.Put(res.task.path, []byte(res.content))
		}
		if res.err != nil {
			failures = append(failures, domain.TaskFailure{Task: res.task.name, Error: res.err.Error()})
			continue
		}
		created = append(created, res.task.path)
	}
	sort.Strings(created)
	sort.Slice(failures, func(i, j int) bool { return failures[i].Task < failures[j].Task })
	return created, failures
}
