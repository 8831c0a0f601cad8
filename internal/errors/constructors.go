package errors

// Convenience functions for common error patterns

// Locator and submission errors

func InvalidLocator(locator string) *RepoDocError {
	return New(CategoryValidation, SeverityWarning, "invalid repository locator").
		WithContext("locator", locator)
}

func ValidationError(message string) *RepoDocError {
	return New(CategoryValidation, SeverityWarning, message)
}

func NotFound(resource string) *RepoDocError {
	return New(CategoryNotFound, SeverityWarning, "not found").
		WithContext("resource", resource)
}

func AccessDenied(path string) *RepoDocError {
	return New(CategoryDenied, SeverityWarning, "access denied").
		WithContext("path", path)
}

func NotReady(jobID string) *RepoDocError {
	return New(CategoryNotReady, SeverityInfo, "job is still processing").
		WithContext("job_id", jobID)
}

// Acquisition errors

func AcquisitionFailed(locator string, cause error) *RepoDocError {
	return Wrap(cause, CategoryGit, SeverityFatal, "repository acquisition failed").
		WithContext("locator", locator)
}

// Pipeline errors

func StageError(stage string, cause error) *RepoDocError {
	return Wrap(cause, CategoryStage, SeverityError, "pipeline stage failed").
		WithContext("stage", stage)
}

// Storage errors

func StorageFailure(operation string, cause error) *RepoDocError {
	return Wrap(cause, CategoryStorage, SeverityFatal, "storage operation failed").
		WithContext("operation", operation)
}

// Deadline errors

func SoftTimeout(jobID string) *RepoDocError {
	return New(CategoryTimeout, SeverityError, "soft deadline exceeded").
		WithContext("job_id", jobID)
}

func HardTimeout(jobID string) *RepoDocError {
	return New(CategoryTimeout, SeverityFatal, "hard deadline exceeded, run abandoned").
		WithContext("job_id", jobID)
}

// Infrastructure errors

func QueueError(operation string, cause error) *RepoDocError {
	return Wrap(cause, CategoryQueue, SeverityFatal, "queue operation failed").
		WithContext("operation", operation)
}

func ConfigRequired(field string) *RepoDocError {
	return New(CategoryConfig, SeverityFatal, "required configuration missing").
		WithContext("field", field)
}

func Internal(message string, cause error) *RepoDocError {
	return Wrap(cause, CategoryInternal, SeverityError, message)
}
