package report

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hylla/statusdesk/internal/domain"
	"github.com/hylla/statusdesk/internal/markup"
)

// Caller is the uniform call surface shared by resources and tasks.
type Caller interface {
	Call(name string, args ...any) (any, error)
}

// Extensions returns the navigator, query and report extensions bound to project.
// subject answers query tokens that name no property.
func Extensions(project *domain.Project, subject Caller, q *Query) []markup.Extension {
	return []markup.Extension{
		navigatorExtension(project),
		queryExtension(project, subject, q),
		reportExtension(project),
	}
}

// navigatorExtension expands <[navigator id="..."]> into a link list.
func navigatorExtension(project *domain.Project) markup.Extension {
	return markup.ExtensionFunc{
		ExtName:      "navigator",
		ExtPlacement: markup.Block,
		Fn: func(args markup.Args) (string, error) {
			id, err := args.Require("id")
			if err != nil {
				return "", err
			}
			links, ok := project.Navigator(id)
			if !ok {
				return "", fmt.Errorf("unknown navigator %q", id)
			}
			lines := make([]string, 0, len(links))
			for _, link := range links {
				lines = append(lines, fmt.Sprintf("- [%s](%s)", markup.Escape(link.Label), link.URL))
			}
			return strings.Join(lines, "\n"), nil
		},
	}
}

// reportExtension expands <[report id="..."]> into a reference to an embeddable report.
func reportExtension(project *domain.Project) markup.Extension {
	return markup.ExtensionFunc{
		ExtName:      "report",
		ExtPlacement: markup.Block,
		Fn: func(args markup.Args) (string, error) {
			id, err := args.Require("id")
			if err != nil {
				return "", err
			}
			ref, ok := project.Report(id)
			if !ok {
				return "", fmt.Errorf("unknown report %q", id)
			}
			if ref.URL == "" {
				return "**" + markup.Escape(ref.Title) + "**", nil
			}
			return fmt.Sprintf("[%s](%s)", markup.Escape(ref.Title), ref.URL), nil
		},
	}
}

// queryExtension expands <-query attribute="..." property="..." scenario="..."-> into a value.
func queryExtension(project *domain.Project, subject Caller, q *Query) markup.Extension {
	return markup.ExtensionFunc{
		ExtName:      "query",
		ExtPlacement: markup.Inline,
		Fn: func(args markup.Args) (string, error) {
			attribute, err := args.Require("attribute")
			if err != nil {
				return "", err
			}
			target := subject
			if id := args.Get("property"); id != "" {
				if task, ok := project.Task(id); ok {
					target = task
				} else if res, ok := project.Resource(id); ok {
					target = res
				} else {
					return "", fmt.Errorf("unknown property %q", id)
				}
			}
			if target == nil {
				return "", errors.New("no property to query")
			}
			idx := project.TrackingScenario()
			if q != nil {
				idx = q.TrackingScenario
			}
			if id := args.Get("scenario"); id != "" {
				found, ok := project.ScenarioIndex(id)
				if !ok {
					return "", fmt.Errorf("unknown scenario %q", id)
				}
				idx = found
			}
			value, err := queryValue(target, attribute, idx)
			if err != nil {
				return "", err
			}
			return formatValue(value, q), nil
		},
	}
}

// queryValue resolves attribute on target: entity operation, then scenario operation, then
// scenario attribute.
func queryValue(target Caller, attribute string, idx int) (any, error) {
	value, err := target.Call(attribute)
	switch {
	case err == nil:
		return value, nil
	case errors.Is(err, domain.ErrInvalidScenario):
		return target.Call(attribute, idx)
	case errors.Is(err, domain.ErrUnknownOperation):
		value, err = target.Call("attribute", idx, attribute)
		if err != nil {
			return nil, err
		}
		if value == nil {
			return nil, fmt.Errorf("unknown attribute %q", attribute)
		}
		return value, nil
	default:
		return nil, err
	}
}

func formatValue(value any, q *Query) string {
	switch v := value.(type) {
	case string:
		return markup.Escape(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		if q == nil {
			return markup.Escape(v.Format(time.DateOnly))
		}
		return markup.Escape(q.FormatTime(v))
	case []string:
		escaped := make([]string, 0, len(v))
		for _, s := range v {
			escaped = append(escaped, markup.Escape(s))
		}
		return strings.Join(escaped, ", ")
	default:
		return markup.Escape(fmt.Sprint(v))
	}
}
