package store

// AdminLoad is an admin eligible for review assignment and the number of
// reviews still pending on them.
type AdminLoad struct {
	ID      string
	Pending int
}

// AppNeed is a submitted application short of reviews.
type AppNeed struct {
	ID              string
	UserID          string
	ReviewsAssigned int
	AssignedTo      []string
}

type Assignment struct {
	ApplicationID string
	AdminID       string
}

// PlanAssignments hands each application the reviews it is missing, always
// picking the least loaded admin first. Ties go to the admin listed first.
// Admins never review their own application or the same application twice.
func PlanAssignments(apps []AppNeed, admins []AdminLoad, reviewsPerApp int) []Assignment {
	if len(admins) == 0 || reviewsPerApp <= 0 {
		return nil
	}
	load := make([]int, len(admins))
	for i, admin := range admins {
		load[i] = admin.Pending
	}

	var plan []Assignment
	for _, app := range apps {
		taken := make(map[string]bool, len(app.AssignedTo)+1)
		for _, id := range app.AssignedTo {
			taken[id] = true
		}
		taken[app.UserID] = true

		for need := reviewsPerApp - app.ReviewsAssigned; need > 0; need-- {
			best := -1
			for i, admin := range admins {
				if taken[admin.ID] {
					continue
				}
				if best < 0 || load[i] < load[best] {
					best = i
				}
			}
			if best < 0 {
				break
			}
			taken[admins[best].ID] = true
			load[best]++
			plan = append(plan, Assignment{ApplicationID: app.ID, AdminID: admins[best].ID})
		}
	}
	return plan
}
