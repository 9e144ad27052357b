package sqlinline

// Campaign rows are always selected in this column order; see
// repo.scanCampaign.

const QInsertCampaign = `--sql 81f32075-d607-4ba3-89c0-fc650061583b
insert into campaigns (id, title, short_description, description, category, goal_amount, currency, status,
                       start_date, end_date, location, organizer, organizer_email, image_url, featured, urgent,
                       tags, created_by, created_at, updated_at)
values ($1::uuid, $2::text, $3::text, $4::text, $5::text, $6::bigint, $7::text, $8::text,
        $9::timestamptz, $10::timestamptz, $11::text, $12::text, $13::text, $14::text, $15::boolean, $16::boolean,
        coalesce($17::text[], '{}'), $18::text, now(), now())
returning current_amount, donor_count, created_at, updated_at;
`

const QUpdateCampaign = `--sql d0077785-3730-404f-88d6-d51a086d331f
update campaigns
set title = $2::text,
    short_description = $3::text,
    description = $4::text,
    category = $5::text,
    goal_amount = $6::bigint,
    status = $7::text,
    start_date = $8::timestamptz,
    end_date = $9::timestamptz,
    location = $10::text,
    organizer = $11::text,
    organizer_email = $12::text,
    image_url = $13::text,
    featured = $14::boolean,
    urgent = $15::boolean,
    tags = coalesce($16::text[], '{}'),
    updated_at = now()
where id = $1::uuid
returning current_amount, donor_count, updated_at;
`

const QSelectCampaignByID = `--sql bd0f4eba-95a9-4293-aa2b-a6e106ee242f
select id, title, short_description, description, category, goal_amount, current_amount, donor_count, currency,
       status, start_date, end_date, location, organizer, organizer_email, image_url, featured, urgent, tags,
       created_by, created_at, updated_at
from campaigns
where id = $1::uuid
limit 1;
`

const QListCampaigns = `--sql 35283b2c-e22b-4ace-8c05-53f36d72b1e8
select id, title, short_description, description, category, goal_amount, current_amount, donor_count, currency,
       status, start_date, end_date, location, organizer, organizer_email, image_url, featured, urgent, tags,
       created_by, created_at, updated_at
from campaigns
where ($1::text = '' or category = $1::text)
  and ($2::text = '' or status = $2::text)
  and ($3::boolean is null or featured = $3::boolean)
  and ($4::boolean is null or urgent = $4::boolean)
  and ($5::text = '' or title ilike '%' || $5::text || '%'
                     or description ilike '%' || $5::text || '%'
                     or short_description ilike '%' || $5::text || '%'
                     or location ilike '%' || $5::text || '%'
                     or organizer ilike '%' || $5::text || '%')
order by
  case when $6::text = 'end_date' and $7::boolean then end_date end desc,
  case when $6::text = 'end_date' and not $7::boolean then end_date end asc,
  case when $6::text = 'current_amount' and $7::boolean then current_amount end desc,
  case when $6::text = 'current_amount' and not $7::boolean then current_amount end asc,
  case when $6::text = 'goal_amount' and $7::boolean then goal_amount end desc,
  case when $6::text = 'goal_amount' and not $7::boolean then goal_amount end asc,
  case when $6::text = 'title' and $7::boolean then title end desc,
  case when $6::text = 'title' and not $7::boolean then title end asc,
  case when not $7::boolean then created_at end asc,
  created_at desc
limit $8::int offset $9::int;
`

const QCountCampaigns = `--sql 566cd2d0-add1-450f-b87b-534f02ba1b4f
select count(*)::int
from campaigns
where ($1::text = '' or category = $1::text)
  and ($2::text = '' or status = $2::text)
  and ($3::boolean is null or featured = $3::boolean)
  and ($4::boolean is null or urgent = $4::boolean)
  and ($5::text = '' or title ilike '%' || $5::text || '%'
                     or description ilike '%' || $5::text || '%'
                     or short_description ilike '%' || $5::text || '%'
                     or location ilike '%' || $5::text || '%'
                     or organizer ilike '%' || $5::text || '%');
`

const QListCampaignIDs = `--sql 4f33eaa9-73c3-45db-a10d-c60a93728c76
select id::text
from campaigns
order by created_at asc;
`

const QDeleteCampaign = `--sql 62ece955-ec26-4ca9-ae95-b78910e14c7a
delete from campaigns c
where c.id = $1::uuid
  and not exists (
      select 1
      from donations d
      where d.campaign_id = c.id
        and d.status in ('completed', 'refunded')
  )
returning c.id::text;
`

const QLockCampaign = `--sql 54f282f0-e591-4a39-afbd-1592b1876c26
select id::text
from campaigns
where id = $1::uuid
for update;
`

// QRecomputeCampaignTotals rebuilds the cached aggregate from completed
// donations. It runs after QLockCampaign in the same transaction so the
// totals subquery observes every donation committed before the lock.
const QRecomputeCampaignTotals = `--sql 2a0a2db8-cabf-4a75-9ae0-9382d9261dc3
update campaigns c
set current_amount = greatest(t.total, 0),
    donor_count = t.donors,
    updated_at = now()
from (
    select coalesce(sum(d.amount - d.refund_amount), 0)::bigint as total,
           count(*)::int as donors
    from donations d
    where d.campaign_id = $1::uuid
      and d.status = 'completed'
) t
where c.id = $1::uuid
returning c.id, c.title, c.short_description, c.description, c.category, c.goal_amount, c.current_amount,
          c.donor_count, c.currency, c.status, c.start_date, c.end_date, c.location, c.organizer,
          c.organizer_email, c.image_url, c.featured, c.urgent, c.tags, c.created_by, c.created_at, c.updated_at;
`

const QCampaignStats = `--sql 8f24a99e-1af2-48a9-833a-bae08ee27c47
select count(*)::int,
       count(*) filter (where status = 'active')::int,
       coalesce(sum(current_amount), 0)::bigint,
       coalesce(sum(donor_count), 0)::int
from campaigns;
`

const QCampaignCategoryTotals = `--sql 5d238394-b950-4c33-9efc-7d57a4e3e42f
select category,
       count(*)::int,
       coalesce(sum(current_amount), 0)::bigint
from campaigns
group by category
order by 3 desc, category asc;
`

const QInsertCampaignUpdate = `--sql 92a90d3c-eef4-41c5-8727-2c5ab5b030f8
with touched as (
    update campaigns
    set updated_at = now()
    where id = $2::uuid
    returning id
)
insert into campaign_updates (id, campaign_id, title, content, image_url, posted_by, posted_at)
select $1::uuid, touched.id, $3::text, $4::text, $5::text, $6::text, now()
from touched
returning posted_at;
`

const QListCampaignUpdates = `--sql b98a969e-3ccf-4d92-acf8-19e65c5e50c4
select id, campaign_id, title, content, image_url, posted_by, posted_at
from campaign_updates
where campaign_id = $1::uuid
order by posted_at desc, id desc
limit $2::int;
`
