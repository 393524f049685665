package content

// AllTags is the filter value that matches every project.
const AllTags = "all"

const noFeatures = "No specific features available"

// FilterProjects returns the projects carrying tag, in their original order.
// The "all" filter (or an empty one) returns the list unchanged.
func FilterProjects(projects []Project, tag string) []Project {
	if tag == "" || tag == AllTags {
		return projects
	}
	filtered := make([]Project, 0, len(projects))
	for _, p := range projects {
		if p.HasTag(tag) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// ProjectTags lists "all" followed by every distinct tag in first-seen order.
func ProjectTags(projects []Project) []string {
	tags := []string{AllTags}
	seen := map[string]struct{}{AllTags: {}}
	for _, p := range projects {
		for _, t := range p.Tags {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			tags = append(tags, t)
		}
	}
	return tags
}

// ProjectDetails returns the long-form description for the project titled title.
func (s *Site) ProjectDetails(title string) string {
	if p, ok := s.projectByTitle(title); ok {
		return p.Details
	}
	return ""
}

// ProjectFeatures returns the feature list for the project titled title.
func (s *Site) ProjectFeatures(title string) []string {
	if p, ok := s.projectByTitle(title); ok && len(p.Features) > 0 {
		return p.Features
	}
	return []string{noFeatures}
}

func (s *Site) projectByTitle(title string) (Project, bool) {
	for _, p := range s.Projects {
		if p.Title == title {
			return p, true
		}
	}
	return Project{}, false
}
