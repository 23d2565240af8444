package domain

// fieldTracking is the static field-tracking configuration, keyed first by
// entity type, then by field name. Loaded once, read-only at runtime.
var fieldTracking = map[string]map[string]FieldTrackingRule{
	"account": {
		"status": {
			Label:    "Account Status",
			Category: ChangeCategoryStatus,
			ValueLabels: map[string]string{
				"prospect": "Prospect",
				"active":   "Active",
				"inactive": "Inactive",
				"churned":  "Churned",
			},
		},
		"tier": {
			Label:    "Account Tier",
			Category: ChangeCategoryPriority,
			ValueLabels: map[string]string{
				"strategic": "Strategic",
				"growth":    "Growth",
				"standard":  "Standard",
			},
		},
		"owner_id": {
			Label:    "Account Owner",
			Category: ChangeCategoryOwner,
		},
		"company_type": {
			Label:    "Company Type",
			Category: ChangeCategoryCategory,
			ValueLabels: map[string]string{
				"direct_client":          "Direct Client",
				"implementation_partner": "Implementation Partner",
				"staffing_agency":        "Staffing Agency",
			},
		},
		"health_score": {
			Label:    "Health Score",
			Category: ChangeCategoryScore,
		},
		"payment_terms": {
			Label:     "Payment Terms",
			Category:  ChangeCategoryCustom,
			Sensitive: true,
		},
	},
	"job": {
		"status": {
			Label:    "Job Status",
			Category: ChangeCategoryStatus,
			ValueLabels: map[string]string{
				"draft":   "Draft",
				"open":    "Open",
				"on_hold": "On Hold",
				"filled":  "Filled",
				"closed":  "Closed",
			},
		},
		"priority": {
			Label:    "Priority",
			Category: ChangeCategoryPriority,
			ValueLabels: map[string]string{
				"low":    "Low",
				"medium": "Medium",
				"high":   "High",
				"urgent": "Urgent",
			},
		},
		"owner_id": {
			Label:    "Job Owner",
			Category: ChangeCategoryOwner,
		},
		"recruiter_id": {
			Label:    "Assigned Recruiter",
			Category: ChangeCategoryAssignment,
		},
		"remote_type": {
			Label:    "Remote Type",
			Category: ChangeCategoryCategory,
			ValueLabels: map[string]string{
				"onsite": "On-site",
				"hybrid": "Hybrid",
				"remote": "Remote",
			},
		},
		"billing_rate": {
			Label:     "Billing Rate",
			Category:  ChangeCategoryCustom,
			Sensitive: true,
		},
		"openings": {
			Label:    "Openings",
			Category: ChangeCategoryCustom,
		},
	},
	"contact": {
		"status": {
			Label:    "Contact Status",
			Category: ChangeCategoryStatus,
			ValueLabels: map[string]string{
				"active":       "Active",
				"inactive":     "Inactive",
				"left_company": "Left Company",
			},
		},
		"owner_id": {
			Label:    "Contact Owner",
			Category: ChangeCategoryOwner,
		},
		"title": {
			Label:    "Job Title",
			Category: ChangeCategoryCustom,
		},
		"engagement_score": {
			Label:    "Engagement Score",
			Category: ChangeCategoryScore,
		},
	},
	"candidate": {
		"availability_status": {
			Label:    "Availability",
			Category: ChangeCategoryStatus,
			ValueLabels: map[string]string{
				"available":     "Available",
				"passive":       "Passively Looking",
				"engaged":       "In Process",
				"placed":        "Placed",
				"not_available": "Not Available",
			},
		},
		"work_authorization": {
			Label:    "Work Authorization",
			Category: ChangeCategoryCategory,
			ValueLabels: map[string]string{
				"citizen":       "Citizen",
				"green_card":    "Green Card",
				"h1b":           "H-1B",
				"opt":           "OPT",
				"tn":            "TN",
				"requires_visa": "Requires Sponsorship",
			},
		},
		"owner_id": {
			Label:    "Candidate Owner",
			Category: ChangeCategoryOwner,
		},
		"match_score": {
			Label:    "Match Score",
			Category: ChangeCategoryScore,
		},
		"desired_rate": {
			Label:     "Desired Rate",
			Category:  ChangeCategoryCustom,
			Sensitive: true,
		},
	},
	"submission": {
		"stage": {
			Label:    "Submission Stage",
			Category: ChangeCategoryStage,
			ValueLabels: map[string]string{
				"submitted":     "Submitted",
				"client_review": "Client Review",
				"interview":     "Interview",
				"offer":         "Offer",
				"placed":        "Placed",
				"rejected":      "Rejected",
				"withdrawn":     "Withdrawn",
			},
		},
		"status": {
			Label:    "Submission Status",
			Category: ChangeCategoryStatus,
			ValueLabels: map[string]string{
				"open":   "Open",
				"closed": "Closed",
			},
		},
		"recruiter_id": {
			Label:    "Recruiter",
			Category: ChangeCategoryAssignment,
		},
		"workflow_step": {
			Label:    "Workflow Step",
			Category: ChangeCategoryWorkflow,
		},
	},
	"placement": {
		"status": {
			Label:    "Placement Status",
			Category: ChangeCategoryStatus,
			ValueLabels: map[string]string{
				"pending":    "Pending Start",
				"active":     "Active",
				"completed":  "Completed",
				"terminated": "Terminated",
			},
		},
		"end_date": {
			Label:    "End Date",
			Category: ChangeCategoryCustom,
		},
		"pay_rate": {
			Label:     "Pay Rate",
			Category:  ChangeCategoryCustom,
			Sensitive: true,
		},
		"bill_rate": {
			Label:     "Bill Rate",
			Category:  ChangeCategoryCustom,
			Sensitive: true,
		},
	},
	"activity": {
		"status": {
			Label:    "Activity Status",
			Category: ChangeCategoryStatus,
			ValueLabels: map[string]string{
				"planned":   "Planned",
				"completed": "Completed",
				"cancelled": "Cancelled",
			},
		},
		"assigned_to": {
			Label:    "Assigned To",
			Category: ChangeCategoryAssignment,
		},
		"due_date": {
			Label:    "Due Date",
			Category: ChangeCategoryCustom,
		},
	},
}

// entityDisplayNames maps entity-type tags to UI display names. Unmapped tags
// fall back to title-casing in EntityTypeDisplayName.
var entityDisplayNames = map[string]string{
	"account":    "Account",
	"job":        "Job",
	"contact":    "Contact",
	"candidate":  "Candidate",
	"submission": "Submission",
	"placement":  "Placement",
	"activity":   "Activity",
}
