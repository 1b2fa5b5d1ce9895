// ABOUTME: Static knowledge base served by the lookup tools
// ABOUTME: Program catalog, payment methods, career outcomes, and enrollment steps

package tools

// Program describes a single course offering.
type Program struct {
	Name        string `json:"name"`
	Duration    string `json:"duration"`
	Price       string `json:"price"`
	Description string `json:"description"`
}

// CareerOutcomes lists the roles graduates move into and the typical range.
type CareerOutcomes struct {
	Roles       []string `json:"roles"`
	SalaryRange string   `json:"salaryRange"`
}

var programs = []Program{
	{
		Name:        "Business Analysis Fundamentals",
		Duration:    "8 weeks",
		Price:       "$500",
		Description: "A beginner-friendly program introducing the core principles, techniques, and tools of business analysis.",
	},
	{
		Name:        "Agile Business Analysis",
		Duration:    "6 weeks",
		Price:       "$450",
		Description: "A program focusing on agile methodologies and how business analysts work within agile teams.",
	},
	{
		Name:        "Data Analytics for Business Analysts",
		Duration:    "10 weeks",
		Price:       "$600",
		Description: "A data-centric course teaching how to analyze, visualize, and interpret business data.",
	},
	{
		Name:        "Requirements Engineering Mastery",
		Duration:    "8 weeks",
		Price:       "$550",
		Description: "In-depth coverage of gathering, documenting, and managing requirements effectively.",
	},
	{
		Name:        "Business Process Modeling",
		Duration:    "6 weeks",
		Price:       "$450",
		Description: "Learn how to map, analyze, and optimize business processes.",
	},
	{
		Name:        "Stakeholder Management & Communication",
		Duration:    "6 weeks",
		Price:       "$400",
		Description: "Develop strong communication and relationship management skills with stakeholders.",
	},
	{
		Name:        "Business Analysis Tools & Techniques",
		Duration:    "8 weeks",
		Price:       "$500",
		Description: "Practical training on industry-standard tools and BA techniques.",
	},
	{
		Name:        "Advanced Agile Product Ownership",
		Duration:    "6 weeks",
		Price:       "$480",
		Description: "Explore product ownership responsibilities in agile environments.",
	},
	{
		Name:        "Strategic Business Analysis",
		Duration:    "10 weeks",
		Price:       "$650",
		Description: "Focused on aligning business analysis with organizational strategy and innovation.",
	},
	{
		Name:        "Business Analysis Career Accelerator",
		Duration:    "6 weeks",
		Price:       "$550",
		Description: "A capstone program designed to prepare you for job applications, interviews, and transitioning into BA roles.",
	},
}

var paymentOptions = []string{
	"Credit/Debit card",
	"Bank transfer",
	"Online transfer",
	"Cryptocurrency payment",
	"Corporate sponsorship (including full upfront or installment arrangements)",
}

var careerOutcomes = CareerOutcomes{
	Roles: []string{
		"Junior Business Analyst",
		"Agile Analyst",
		"Data Analyst",
		"Business Process Analyst",
		"Product Owner",
		"Requirements Analyst",
		"Systems Analyst",
		"Functional Consultant",
		"Project Coordinator",
		"Operations Analyst",
		"Quality Assurance Analyst",
		"Business Intelligence Analyst",
		"Product Manager",
	},
	SalaryRange: "$60,000–$85,000 per year (US entry-level)",
}

var enrollmentSteps = []string{
	"Visit the official Business Analysis School website.",
	"Select your desired course from the programs list.",
	"Click “Enroll Now” and create or sign into your student account.",
	"Choose your preferred payment method from the accepted options.",
	"Complete the payment process; you will receive a confirmation email with your start date and course access details.",
}
