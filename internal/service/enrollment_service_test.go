package service

import (
	"testing"
	"ttrac_backend/internal/model"
	"ttrac_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrollmentService_Lifecycle(t *testing.T) {
	f := newFixture(t)
	faculty := f.user("Prof. Hopper", model.Faculty)
	student := f.user("Linus", model.Student)
	course := f.course(faculty, "Operating Systems")

	e, err := f.enrollments.Request(f.ctx, student.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EnrollmentPending, e.Status)

	_, err = f.enrollments.Request(f.ctx, student.ID, course.ID)
	assert.ErrorIs(t, err, util.ErrEnrollmentExists)

	facultyInbox := f.notifications(faculty.ID)
	require.Len(t, facultyInbox, 1)
	assert.Equal(t, "Linus requested to join Operating Systems", facultyInbox[0].Message)

	declined, err := f.enrollments.Decline(f.ctx, faculty, e.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EnrollmentDeclined, declined.Status)
	require.NotNil(t, declined.DecidedBy)

	_, err = f.enrollments.Approve(f.ctx, faculty, e.ID)
	assert.ErrorIs(t, err, util.ErrInvalidTransition)

	// 被拒绝后重新申请复用原记录
	again, err := f.enrollments.Request(f.ctx, student.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, e.ID, again.ID)
	assert.Equal(t, model.EnrollmentPending, again.Status)
	assert.Nil(t, again.DecidedBy)
	assert.Len(t, f.notifications(faculty.ID), 2)

	approved, err := f.enrollments.Approve(f.ctx, faculty, e.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EnrollmentApproved, approved.Status)

	ok, err := f.enrollRepo.IsApproved(student.ID, course.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.ElementsMatch(t,
		[]string{"Enrollment declined", "Enrollment approved"},
		titles(f.notifications(student.ID)))

	mine, err := f.enrollments.ListMine(student.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestEnrollmentService_OnlyOwnerDecides(t *testing.T) {
	f := newFixture(t)
	faculty := f.user("Prof. Hopper", model.Faculty)
	other := f.user("Prof. Dijkstra", model.Faculty)
	admin := f.user("Registrar", model.Admin)
	student := f.user("Linus", model.Student)
	course := f.course(faculty, "Operating Systems")

	e, err := f.enrollments.Request(f.ctx, student.ID, course.ID)
	require.NoError(t, err)

	_, err = f.enrollments.Approve(f.ctx, other, e.ID)
	assert.ErrorIs(t, err, util.ErrNotCourseOwner)

	_, err = f.enrollments.ListForCourse(other, course.ID, "")
	assert.ErrorIs(t, err, util.ErrNotCourseOwner)

	pending, err := f.enrollments.ListForCourse(faculty, course.ID, string(model.EnrollmentPending))
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	_, err = f.enrollments.Approve(f.ctx, admin, e.ID)
	require.NoError(t, err)

	_, err = f.enrollments.Approve(f.ctx, faculty, 9999)
	assert.ErrorIs(t, err, util.ErrEnrollmentNotFound)

	_, err = f.enrollments.Request(f.ctx, student.ID, 9999)
	assert.ErrorIs(t, err, util.ErrCourseNotFound)
}
