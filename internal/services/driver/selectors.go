package driver

// CSS selectors for the listings site. Kept in one place because the site's
// markup shifts; everything else works off parsed structures.
const (
	selJobCard      = "a[data-jk], a[href*='viewjob']"
	selJobCount     = "div.jobsearch-JobCountAndSortPane-jobCount span"
	selJobTitle     = "h1[data-testid='jobsearch-JobInfoHeader-title'], h1.jobsearch-JobInfoHeader-title"
	selCompanyName  = "[data-testid='inlineHeader-companyName'], [data-company-name]"
	selJobLocation  = "[data-testid='inlineHeader-companyLocation'], [data-testid='job-location']"
	selDescription  = "#jobDescriptionText"
	selApplyButton  = "#applyButtonLinkContainer button, button[id^='indeedApplyButton'], .jobsearch-IndeedApplyButton-newDesign"
	selExternalLink = "#applyButtonLinkContainer a[href], a[aria-label*='company site']"
	selWizardRoot   = "div.ia-Modal, div[data-testid='application-form'], form.ia-questions"
	selQuestionItem = "div[data-testid='input-q'], .ia-Questions-item"
	selContinueBtn  = "button[data-testid='continue-button'], button.ia-continueButton"
	selSubmitBtn    = "button[data-testid='submit-button'], button[type='submit'].ia-continueButton"
	selReviewPane   = "div[data-testid='review-submit'], .ia-Review"
)
